package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

// RobotsCache fetches and caches robots.txt per host. Lookup failures fail
// open: a host whose robots.txt cannot be retrieved or parsed is treated as
// allowing everything, and the nil result is cached so the host is not
// re-queried every time.
type RobotsCache struct {
	client   *http.Client
	identity RequestIdentity
	mu       sync.Mutex
	cache    map[string]*robotstxt.RobotsData // nil value = no usable robots.txt
	inflight map[string]chan struct{}
	log      *logrus.Entry
}

// NewRobotsCache creates an empty cache backed by the shared client.
func NewRobotsCache(client *http.Client, identity RequestIdentity, log *logrus.Entry) *RobotsCache {
	return &RobotsCache{
		client:   client,
		identity: identity,
		cache:    make(map[string]*robotstxt.RobotsData),
		inflight: make(map[string]chan struct{}),
		log:      log,
	}
}

// Allowed reports whether the given URL may be fetched under the host's
// robots directives for the configured agent.
func (rc *RobotsCache) Allowed(ctx context.Context, u *url.URL, agent string) bool {
	data := rc.get(ctx, u)
	if data == nil {
		return true
	}
	group := data.FindGroup(agent)
	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (rc *RobotsCache) get(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	key := u.Scheme + "://" + u.Host

	for {
		rc.mu.Lock()
		if data, ok := rc.cache[key]; ok {
			rc.mu.Unlock()
			return data
		}
		if wait, busy := rc.inflight[key]; busy {
			rc.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil
			}
		}
		done := make(chan struct{})
		rc.inflight[key] = done
		rc.mu.Unlock()

		data := rc.fetch(ctx, key)

		rc.mu.Lock()
		rc.cache[key] = data
		delete(rc.inflight, key)
		close(done)
		rc.mu.Unlock()
		return data
	}
}

func (rc *RobotsCache) fetch(ctx context.Context, origin string) *robotstxt.RobotsData {
	robotsURL := origin + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		rc.log.Warnf("robots: building request for %s failed: %v", robotsURL, err)
		return nil
	}
	req.Header.Set("User-Agent", rc.identity.UserAgent())

	resp, err := rc.client.Do(req)
	if err != nil {
		rc.log.WithField("url", robotsURL).Debugf("robots: fetch failed, allowing all: %v", err)
		return nil
	}
	defer resp.Body.Close()

	// 4xx means "no robots policy" per convention; treat 5xx the same but log.
	if resp.StatusCode >= 500 {
		rc.log.WithFields(logrus.Fields{"url": robotsURL, "code": resp.StatusCode}).
			Debug("robots: server error, allowing all")
		return nil
	}
	if resp.StatusCode >= 400 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		rc.log.WithField("url", robotsURL).Debugf("robots: body read failed, allowing all: %v", err)
		return nil
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		rc.log.WithField("url", robotsURL).Debugf("robots: parse failed, allowing all: %v", err)
		return nil
	}
	return data
}
