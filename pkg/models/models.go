package models

import "time"

// FrontierItem is a pending fetch task. Items are created when a source
// provider seeds a query or when a processed page yields a follow-up link;
// they are consumed exactly once by a worker.
type FrontierItem struct {
	Target    string    // Absolute URL to fetch
	Depth     int       // Link-following depth (seeds are depth 0)
	PageIndex int       // Page number within the item's query (seeds are page 0)
	SourceTag string    // "<provider>/<query>" identifier of the originating traversal
	BornAt    time.Time // Enqueue timestamp
}

// VisitKey identifies an item for per-run duplicate suppression. The same
// (target, source tag) pair is never processed twice in one run.
func (it FrontierItem) VisitKey() string {
	return it.SourceTag + "|" + it.Target
}

// FetchOutcome is the classified result of fetching one target, produced by
// the fetcher after its retry loop finishes.
type FetchOutcome struct {
	Status   FetchStatus
	HTTPCode int    // Last observed HTTP status code, 0 if none
	Body     []byte // Response body, only set on success
	FinalURL string // URL after redirects, equals the request URL if none
	Attempts int    // Network attempts actually issued
}

// CandidateOrigin names the extraction method that produced a candidate.
type CandidateOrigin string

const (
	OriginBody       CandidateOrigin = "body"
	OriginLinkHref   CandidateOrigin = "link_href"
	OriginLinkText   CandidateOrigin = "link_text"
	OriginAttribute  CandidateOrigin = "attribute"
	OriginMetaTag    CandidateOrigin = "meta_tag"
	OriginStructured CandidateOrigin = "structured"
)

// CandidateMatch is a raw fingerprint hit found in a fetched document. It is
// ephemeral: produced by an extraction strategy and consumed immediately by
// the canonicalizer.
type CandidateMatch struct {
	RawText   string
	Origin    CandidateOrigin
	SourceURL string
}

// CanonicalEntity is a normalized, deduplicated discovery result. Immutable
// once inserted into the dedup store.
type CanonicalEntity struct {
	Key       string    `json:"key"`        // Canonical host, e.g. "foo.myshopify.com"
	URL       string    `json:"url"`        // Reassembled canonical URL
	SourceTag string    `json:"source"`     // Traversal that first discovered it
	FirstSeen time.Time `json:"first_seen"` // Time of first insertion
}

// VisitRecord stores the outcome of processing one frontier item in the
// persistent store.
type VisitRecord struct {
	Status      FetchStatus `json:"status"`
	ErrorType   string      `json:"error_type,omitempty"` // Error category (on failure)
	LastAttempt time.Time   `json:"last_attempt"`
	Depth       int         `json:"depth"`
	PageIndex   int         `json:"page_index"`
	SourceTag   string      `json:"source"`
}

// RunSummary is a snapshot of one discovery run's counters, reported at the
// end of the run and handed to sinks alongside the entity set.
type RunSummary struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    time.Time
	Outcome       string // Final run state: exhausted, draining or aborted
	Processed     int64  // Frontier items fully processed
	Succeeded     int64  // Items whose fetch succeeded
	Blocked       int64  // Items dropped on site-level rejection (403)
	Failed        int64  // Items dropped after exhausting retries or on client errors
	RobotsSkipped int64  // Items skipped by robots directives
	RequestSlots  int64  // Total network attempts issued (incl. retries)
	Entities      int    // Final canonical entity count
}
