package fetch

import (
	"context"
	"net/url"
	"sync"
	"time"

	"shopfinder/pkg/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Decision is the gate's verdict for one prospective request.
type Decision struct {
	Allow bool          // false = robots disallow, do not fetch
	Wait  time.Duration // required delay before issuing the request
}

// hostPolicy is per-host politeness state.
type hostPolicy struct {
	lastRequestAt       time.Time
	consecutiveFailures int
	limiter             *rate.Limiter // nil when the token bucket is disabled
}

// PolitenessGate enforces per-host pacing in two phases: Authorize computes
// the wait without mutating state, and Commit records the request once the
// caller has actually slept and is about to issue it. This keeps the
// inter-request clock honest when many workers queue on the same host.
type PolitenessGate struct {
	minInterval  time.Duration
	bucketLimit  rate.Limit
	bucketBurst  int
	maxFailDelay time.Duration
	robots       *RobotsCache

	mu    sync.Mutex
	hosts map[string]*hostPolicy
	log   *logrus.Entry
}

// NewPolitenessGate builds a gate with a minimum inter-request interval and
// an optional token bucket (requests per window; requests <= 0 disables it).
func NewPolitenessGate(minInterval time.Duration, bucketRequests int, bucketWindow time.Duration, robots *RobotsCache, log *logrus.Entry) *PolitenessGate {
	g := &PolitenessGate{
		minInterval:  minInterval,
		maxFailDelay: 5 * minInterval,
		robots:       robots,
		hosts:        make(map[string]*hostPolicy),
		log:          log,
	}
	if bucketRequests > 0 && bucketWindow > 0 {
		g.bucketLimit = rate.Limit(float64(bucketRequests) / bucketWindow.Seconds())
		g.bucketBurst = bucketRequests
	}
	return g
}

func (g *PolitenessGate) policy(host string) *hostPolicy {
	p, ok := g.hosts[host]
	if !ok {
		p = &hostPolicy{}
		if g.bucketBurst > 0 {
			p.limiter = rate.NewLimiter(g.bucketLimit, g.bucketBurst)
		}
		g.hosts[host] = p
	}
	return p
}

// Authorize checks robots and computes the delay required before fetching u.
// It does not mutate pacing state; callers sleep the returned Wait and then
// call Commit immediately before issuing the request.
func (g *PolitenessGate) Authorize(ctx context.Context, u *url.URL, agent string) Decision {
	if g.robots != nil && !g.robots.Allowed(ctx, u, agent) {
		return Decision{Allow: false}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.policy(u.Hostname())

	var wait time.Duration
	if !p.lastRequestAt.IsZero() {
		if since := time.Since(p.lastRequestAt); since < g.minInterval {
			wait = g.minInterval - since
		}
	}
	if p.limiter != nil {
		res := p.limiter.Reserve()
		delay := res.Delay()
		res.Cancel()
		if delay > wait {
			wait = delay
		}
	}
	if p.consecutiveFailures > 0 {
		penalty := time.Duration(p.consecutiveFailures) * g.minInterval / 2
		if penalty > g.maxFailDelay {
			penalty = g.maxFailDelay
		}
		wait += penalty
	}
	return Decision{Allow: true, Wait: wait}
}

// Commit records that a request to host is being issued now.
func (g *PolitenessGate) Commit(host string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.policy(host)
	p.lastRequestAt = time.Now()
	if p.limiter != nil {
		p.limiter.Allow()
	}
}

// RecordOutcome feeds the fetch result back so repeated failures slow the
// host down and a success clears the penalty.
func (g *PolitenessGate) RecordOutcome(host string, status models.FetchStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.policy(host)
	switch {
	case status == models.StatusSuccess:
		p.consecutiveFailures = 0
	case status.Transient():
		p.consecutiveFailures++
		g.log.WithFields(logrus.Fields{"host": host, "failures": p.consecutiveFailures}).
			Debug("Host failure streak increased")
	}
}
