package fetch

import (
	"math/rand"
	"sync"
)

// RequestIdentity supplies the User-Agent for outbound requests.
type RequestIdentity interface {
	UserAgent() string
}

// StaticIdentity presents a single fixed User-Agent.
type StaticIdentity string

func (s StaticIdentity) UserAgent() string { return string(s) }

// fallbackUserAgents is used by RotatingIdentity when the configuration
// supplies no extra agents of its own.
var fallbackUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:126.0) Gecko/20100101 Firefox/126.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

// RotatingIdentity cycles through a pool of User-Agent strings, picking one
// at random per request. Safe for concurrent use.
type RotatingIdentity struct {
	agents []string
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewRotatingIdentity builds an identity from the given agents, falling back
// to a built-in browser pool when none are supplied.
func NewRotatingIdentity(agents []string, seed int64) *RotatingIdentity {
	if len(agents) == 0 {
		agents = fallbackUserAgents
	}
	return &RotatingIdentity{
		agents: agents,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (r *RotatingIdentity) UserAgent() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agents[r.rng.Intn(len(r.agents))]
}
