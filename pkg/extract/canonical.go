package extract

import (
	"regexp"
	"strings"

	"shopfinder/pkg/config"
)

// Canonicalizer turns raw candidate text into a canonical host key. The
// mapping is a fixed point: feeding a canonical key back in yields the same
// key, so re-canonicalizing stored results is always safe.
type Canonicalizer struct {
	suffix    string // including leading dot, e.g. ".myshopify.com"
	blocklist map[string]struct{}
	minLen    int
	maxLen    int
	tokenRe   *regexp.Regexp
}

// NewCanonicalizer builds a canonicalizer from fingerprint settings.
func NewCanonicalizer(cfg config.FingerprintConfig) *Canonicalizer {
	bl := make(map[string]struct{}, len(cfg.Blocklist))
	for _, t := range cfg.Blocklist {
		bl[strings.ToLower(t)] = struct{}{}
	}
	return &Canonicalizer{
		suffix:    strings.ToLower(cfg.Suffix),
		blocklist: bl,
		minLen:    cfg.MinTokenLen,
		maxLen:    cfg.MaxTokenLen,
		tokenRe:   regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`),
	}
}

// Suffix returns the configured fingerprint suffix.
func (c *Canonicalizer) Suffix() string { return c.suffix }

// Canonicalize normalizes raw candidate text to a canonical host key
// ("<token><suffix>"). ok is false when no valid identifier can be
// recovered: bad grammar, out-of-range length, or a blocklisted token.
func (c *Canonicalizer) Canonicalize(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}

	// Strip scheme and everything after the host.
	for _, prefix := range []string{"https://", "http://", "//"} {
		if strings.HasPrefix(s, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "www.")
	s = strings.Trim(s, ".")
	if s == "" {
		return "", false
	}

	var token string
	switch {
	case strings.HasSuffix(s, c.suffix):
		token = s[:len(s)-len(c.suffix)]
		// Nested subdomains resolve to the label nearest the suffix.
		if i := strings.LastIndexByte(token, '.'); i >= 0 {
			token = token[i+1:]
		}
	case strings.Contains(s, "."):
		// Some other domain entirely.
		return "", false
	default:
		// Bare token, e.g. a directory slug.
		token = s
	}

	if !c.validToken(token) {
		return "", false
	}
	return token + c.suffix, true
}

// URLFor reassembles the canonical URL for a key.
func (c *Canonicalizer) URLFor(key string) string {
	return "https://" + key
}

func (c *Canonicalizer) validToken(token string) bool {
	if len(token) < c.minLen || len(token) > c.maxLen {
		return false
	}
	if _, banned := c.blocklist[token]; banned {
		return false
	}
	return c.tokenRe.MatchString(token)
}
