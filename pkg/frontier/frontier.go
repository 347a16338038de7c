package frontier

import (
	"sync"

	"shopfinder/pkg/models"

	"github.com/sirupsen/logrus"
)

// Frontier is the pending-work queue. Items are FIFO within a source tag
// and dispatched round-robin across tags, so one prolific query cannot
// starve the rest. The frontier also owns per-run duplicate suppression
// (one processing per (target, source tag) pair) and the consecutive-empty-
// page cutoff that retires an unproductive traversal.
type Frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	queues  map[string][]*models.FrontierItem
	order   []string // round-robin order, tags in first-seen order
	cursor  int
	pending int

	visited     map[string]struct{}
	stoppedTags map[string]struct{}
	emptyStreak map[string]int

	maxEmptyStreak int
	maxPending     int
	dropped        int64
	closed         bool
	log            *logrus.Entry
}

// New creates a frontier. maxPending bounds total queued items (overflow is
// dropped with a warning); maxEmptyStreak retires a tag after that many
// consecutive pages yielding no new entities.
func New(maxPending, maxEmptyStreak int, log *logrus.Entry) *Frontier {
	f := &Frontier{
		queues:         make(map[string][]*models.FrontierItem),
		visited:        make(map[string]struct{}),
		stoppedTags:    make(map[string]struct{}),
		emptyStreak:    make(map[string]int),
		maxEmptyStreak: maxEmptyStreak,
		maxPending:     maxPending,
		log:            log,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Add enqueues an item. Returns false when the item is not accepted: the
// frontier is closed, the (target, source tag) pair was already seen this
// run, the tag has been retired, or the capacity bound is hit.
func (f *Frontier) Add(item *models.FrontierItem) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	key := item.VisitKey()
	if _, seen := f.visited[key]; seen {
		return false
	}
	if _, stopped := f.stoppedTags[item.SourceTag]; stopped {
		return false
	}
	if f.maxPending > 0 && f.pending >= f.maxPending {
		f.dropped++
		f.log.WithFields(logrus.Fields{"target": item.Target, "source": item.SourceTag, "pending": f.pending}).
			Warn("Frontier full, dropping item")
		return false
	}

	// Marked at enqueue so a duplicate cannot slip in while the first copy
	// is still queued or in flight.
	f.visited[key] = struct{}{}

	if _, exists := f.queues[item.SourceTag]; !exists {
		f.order = append(f.order, item.SourceTag)
	}
	f.queues[item.SourceTag] = append(f.queues[item.SourceTag], item)
	f.pending++
	f.cond.Signal()
	return true
}

// Pop blocks until an item is available or the frontier is closed. The
// second return is false only on close-and-empty, which is the workers'
// shutdown signal.
func (f *Frontier) Pop() (*models.FrontierItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for f.pending == 0 && !f.closed {
		f.cond.Wait()
	}
	if f.pending == 0 && f.closed {
		return nil, false
	}

	// Round-robin scan from the cursor for the next non-empty tag queue.
	n := len(f.order)
	for i := 0; i < n; i++ {
		tag := f.order[(f.cursor+i)%n]
		q := f.queues[tag]
		if len(q) == 0 {
			continue
		}
		item := q[0]
		f.queues[tag] = q[1:]
		f.pending--
		f.cursor = (f.cursor + i + 1) % n
		return item, true
	}
	// pending > 0 guarantees a non-empty queue above.
	return nil, false
}

// RecordPageResult feeds back how many new entities a processed page
// produced for its tag. A run of empty pages retires the tag: queued items
// for it are discarded and future adds are refused. Returns the number of
// queued items discarded so the caller can settle its task accounting.
func (f *Frontier) RecordPageResult(tag string, newEntities int) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, stopped := f.stoppedTags[tag]; stopped {
		return 0
	}
	if newEntities > 0 {
		f.emptyStreak[tag] = 0
		return 0
	}
	f.emptyStreak[tag]++
	if f.maxEmptyStreak > 0 && f.emptyStreak[tag] >= f.maxEmptyStreak {
		f.stoppedTags[tag] = struct{}{}
		discarded := len(f.queues[tag])
		f.pending -= discarded
		f.queues[tag] = nil
		f.log.WithFields(logrus.Fields{"source": tag, "empty_pages": f.emptyStreak[tag], "discarded": discarded}).
			Info("Source exhausted: consecutive empty pages reached threshold")
		if f.pending == 0 {
			f.cond.Broadcast()
		}
		return discarded
	}
	return 0
}

// Stopped reports whether a tag has been retired.
func (f *Frontier) Stopped(tag string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.stoppedTags[tag]
	return ok
}

// Len returns the number of queued items.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

// Dropped returns how many items were rejected for capacity.
func (f *Frontier) Dropped() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

// Close stops accepting items and wakes all blocked Pop calls once the
// queue drains. Idempotent.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.cond.Broadcast()
}
