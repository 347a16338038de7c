package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"shopfinder/pkg/models"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Strategy is one extraction method run against a fetched document. The
// strategies overlap on purpose: pages embed the fingerprint in markup,
// attributes and inline JSON, and any single method misses some of them.
type Strategy interface {
	Name() string
	Extract(doc *Document) []models.CandidateMatch
}

// hostPattern builds the matcher for "<token><suffix>" occurrences.
func hostPattern(suffix string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b[a-z0-9][a-z0-9-]*` + regexp.QuoteMeta(suffix) + `\b`)
}

// BodyPatternStrategy scans the raw response bytes. It is the cheapest
// method and the only one that works on non-HTML payloads.
type BodyPatternStrategy struct {
	re *regexp.Regexp
}

func NewBodyPatternStrategy(suffix string) *BodyPatternStrategy {
	return &BodyPatternStrategy{re: hostPattern(suffix)}
}

func (s *BodyPatternStrategy) Name() string { return "body" }

func (s *BodyPatternStrategy) Extract(doc *Document) []models.CandidateMatch {
	var matches []models.CandidateMatch
	for _, hit := range s.re.FindAllString(string(doc.Body), -1) {
		matches = append(matches, models.CandidateMatch{
			RawText:   hit,
			Origin:    models.OriginBody,
			SourceURL: doc.SourceURL,
		})
	}
	return matches
}

// LinkStrategy inspects anchor hrefs and their visible text. Search result
// pages usually carry the fingerprint in one of the two.
type LinkStrategy struct {
	suffix string
	re     *regexp.Regexp
}

func NewLinkStrategy(suffix string) *LinkStrategy {
	return &LinkStrategy{suffix: strings.ToLower(suffix), re: hostPattern(suffix)}
}

func (s *LinkStrategy) Name() string { return "links" }

func (s *LinkStrategy) Extract(doc *Document) []models.CandidateMatch {
	parsed, err := doc.HTML()
	if err != nil {
		return nil
	}
	var matches []models.CandidateMatch
	parsed.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			if strings.Contains(strings.ToLower(href), s.suffix) {
				for _, hit := range s.re.FindAllString(href, -1) {
					matches = append(matches, models.CandidateMatch{
						RawText:   hit,
						Origin:    models.OriginLinkHref,
						SourceURL: doc.SourceURL,
					})
				}
			}
		}
		text := sel.Text()
		if strings.Contains(strings.ToLower(text), s.suffix) {
			for _, hit := range s.re.FindAllString(text, -1) {
				matches = append(matches, models.CandidateMatch{
					RawText:   hit,
					Origin:    models.OriginLinkText,
					SourceURL: doc.SourceURL,
				})
			}
		}
	})
	return matches
}

// AttributeStrategy walks every element's attributes. Catches fingerprints
// tucked into data-* attributes, image srcs, canonical tags and the like.
type AttributeStrategy struct {
	suffix string
	re     *regexp.Regexp
}

func NewAttributeStrategy(suffix string) *AttributeStrategy {
	return &AttributeStrategy{suffix: strings.ToLower(suffix), re: hostPattern(suffix)}
}

func (s *AttributeStrategy) Name() string { return "attributes" }

func (s *AttributeStrategy) Extract(doc *Document) []models.CandidateMatch {
	parsed, err := doc.HTML()
	if err != nil {
		return nil
	}
	var matches []models.CandidateMatch
	parsed.Find("*").Each(func(_ int, sel *goquery.Selection) {
		node := sel.Get(0)
		if node == nil || node.Type != html.ElementNode {
			return
		}
		origin := models.OriginAttribute
		if node.Data == "meta" {
			origin = models.OriginMetaTag
		}
		for _, attr := range node.Attr {
			if !strings.Contains(strings.ToLower(attr.Val), s.suffix) {
				continue
			}
			for _, hit := range s.re.FindAllString(attr.Val, -1) {
				matches = append(matches, models.CandidateMatch{
					RawText:   hit,
					Origin:    origin,
					SourceURL: doc.SourceURL,
				})
			}
		}
	})
	return matches
}

// StructuredStrategy parses inline JSON script blocks (ld+json, embedded
// state blobs) and scans every string leaf.
type StructuredStrategy struct {
	suffix string
	re     *regexp.Regexp
}

func NewStructuredStrategy(suffix string) *StructuredStrategy {
	return &StructuredStrategy{suffix: strings.ToLower(suffix), re: hostPattern(suffix)}
}

func (s *StructuredStrategy) Name() string { return "structured" }

func (s *StructuredStrategy) Extract(doc *Document) []models.CandidateMatch {
	parsed, err := doc.HTML()
	if err != nil {
		return nil
	}
	var matches []models.CandidateMatch
	parsed.Find("script").Each(func(_ int, sel *goquery.Selection) {
		raw := sel.Text()
		if !strings.Contains(strings.ToLower(raw), s.suffix) {
			return
		}
		var payload any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			// Not pure JSON (likely JS); the body strategy still covers it.
			return
		}
		s.walk(payload, doc.SourceURL, &matches)
	})
	return matches
}

func (s *StructuredStrategy) walk(v any, sourceURL string, out *[]models.CandidateMatch) {
	switch val := v.(type) {
	case string:
		if strings.Contains(strings.ToLower(val), s.suffix) {
			for _, hit := range s.re.FindAllString(val, -1) {
				*out = append(*out, models.CandidateMatch{
					RawText:   hit,
					Origin:    models.OriginStructured,
					SourceURL: sourceURL,
				})
			}
		}
	case []any:
		for _, item := range val {
			s.walk(item, sourceURL, out)
		}
	case map[string]any:
		for _, item := range val {
			s.walk(item, sourceURL, out)
		}
	}
}
