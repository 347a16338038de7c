package crawler

import (
	"context"
	"net/url"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"shopfinder/pkg/config"
	"shopfinder/pkg/dedup"
	"shopfinder/pkg/extract"
	"shopfinder/pkg/fetch"
	"shopfinder/pkg/frontier"
	"shopfinder/pkg/models"
	"shopfinder/pkg/source"
	"shopfinder/pkg/storage"
	"shopfinder/pkg/utils"
)

// Coordinator runs one discovery pass: it seeds the frontier from the
// source providers, dispatches items to a worker pool, and drives each item
// through the politeness gate, fetcher, extractor and dedup store. Task
// accounting is strict: every accepted frontier item is settled exactly
// once, so the run ends when (and only when) all work is done or cancelled.
type Coordinator struct {
	cfg       *config.AppConfig
	fetcher   *fetch.Fetcher
	gate      *fetch.PolitenessGate
	hostSems  *fetch.HostSemaphorePool
	globalSem *semaphore.Weighted
	frontier  *frontier.Frontier
	extractor *extract.Extractor
	canon     *extract.Canonicalizer
	dedup     *dedup.Store
	store     storage.RunStore
	providers map[string]source.Provider
	log       *logrus.Logger

	state  atomic.Int32
	stats  *runStats
	wg     sync.WaitGroup
	cancel context.CancelFunc

	runID     string
	startedAt time.Time
}

// Deps bundles the coordinator's collaborators.
type Deps struct {
	Fetcher   *fetch.Fetcher
	Gate      *fetch.PolitenessGate
	HostSems  *fetch.HostSemaphorePool
	Frontier  *frontier.Frontier
	Extractor *extract.Extractor
	Canon     *extract.Canonicalizer
	Dedup     *dedup.Store
	Store     storage.RunStore
	Providers []source.Provider
	Log       *logrus.Logger
}

// New wires a coordinator. The provider list is indexed by name so source
// tags ("<provider>/<query>") resolve back to their provider.
func New(cfg *config.AppConfig, d Deps) *Coordinator {
	byName := make(map[string]source.Provider, len(d.Providers))
	for _, p := range d.Providers {
		byName[p.Name()] = p
	}
	return &Coordinator{
		cfg:       cfg,
		fetcher:   d.Fetcher,
		gate:      d.Gate,
		hostSems:  d.HostSems,
		globalSem: semaphore.NewWeighted(int64(cfg.MaxRequests)),
		frontier:  d.Frontier,
		extractor: d.Extractor,
		canon:     d.Canon,
		dedup:     d.Dedup,
		store:     d.Store,
		providers: byName,
		log:       d.Log,
		stats:     newRunStats(),
	}
}

// State returns the current run state.
func (c *Coordinator) State() RunState {
	return RunState(c.state.Load())
}

func (c *Coordinator) transition(from, to RunState) bool {
	return c.state.CompareAndSwap(int32(from), int32(to))
}

// Run executes the discovery pass and blocks until it finishes. The
// returned summary is valid even when err is non-nil.
func (c *Coordinator) Run(ctx context.Context) (models.RunSummary, error) {
	if !c.transition(StateIdle, StateRunning) {
		return models.RunSummary{}, utils.WrapErrorf(utils.ErrConfigValidation, "coordinator already started")
	}
	c.runID = uuid.NewString()
	c.startedAt = time.Now()
	runLog := c.log.WithField("run_id", c.runID)

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	defer cancel()

	seeded, err := c.seed()
	if err != nil {
		c.state.Store(int32(StateAborted))
		c.frontier.Close()
		return c.summary(), err
	}
	runLog.WithFields(logrus.Fields{"seeds": seeded, "workers": c.cfg.NumWorkers}).Info("Run started")

	// Watcher closes the frontier on cancellation so blocked workers wake.
	go func() {
		<-ctx.Done()
		c.transition(StateRunning, StateAborted)
		c.frontier.Close()
	}()

	// Waiter closes the frontier once every accepted item is settled.
	go func() {
		c.wg.Wait()
		c.frontier.Close()
	}()

	progressDone := make(chan struct{})
	go c.reportProgress(progressDone)

	var workers sync.WaitGroup
	for i := 0; i < c.cfg.NumWorkers; i++ {
		workers.Add(1)
		go func(id int) {
			defer workers.Done()
			c.worker(ctx, id)
		}(i)
	}
	workers.Wait()
	close(progressDone)

	// Natural completion; cancellation and draining have already set their
	// states and lose this race by design.
	c.transition(StateRunning, StateExhausted)
	c.transition(StateDraining, StateExhausted)

	s := c.summary()
	runLog.WithFields(logrus.Fields{
		"outcome":   s.Outcome,
		"processed": s.Processed,
		"entities":  s.Entities,
		"errors":    c.stats.errorBreakdown(),
	}).Info("Run finished")

	// Draining cancels its own context to stop retries; that is a normal
	// completion, not an error. Only an external abort surfaces ctx.Err().
	if c.State() == StateAborted {
		return s, ctx.Err()
	}
	return s, nil
}

// seed enqueues every provider's initial items.
func (c *Coordinator) seed() (int, error) {
	total := 0
	for name, p := range c.providers {
		items, err := p.Seeds()
		if err != nil {
			return total, err
		}
		accepted := 0
		for _, item := range items {
			if c.frontier.Add(item) {
				c.wg.Add(1)
				accepted++
			}
		}
		total += accepted
		c.log.WithFields(logrus.Fields{"source": name, "accepted": accepted, "offered": len(items)}).
			Debug("Source seeded")
	}
	return total, nil
}

func (c *Coordinator) worker(ctx context.Context, id int) {
	wlog := c.log.WithField("worker_id", id)
	for {
		item, ok := c.frontier.Pop()
		if !ok {
			wlog.Debug("Worker shutting down: frontier closed")
			return
		}
		c.processItem(ctx, item, wlog)
	}
}

// processItem drives one frontier item through the full pipeline. The defer
// settles the item's accounting exactly once, panics included.
func (c *Coordinator) processItem(ctx context.Context, item *models.FrontierItem, wlog *logrus.Entry) {
	defer func() {
		if r := recover(); r != nil {
			wlog.WithFields(logrus.Fields{"target": item.Target, "panic": r}).
				Errorf("Recovered from panic in worker:\n%s", debug.Stack())
			c.stats.failed.Add(1)
			c.stats.recordError("Internal_Panic")
		}
		c.stats.processed.Add(1)
		c.wg.Done()
	}()

	ilog := wlog.WithFields(logrus.Fields{"target": item.Target, "source": item.SourceTag, "page": item.PageIndex})

	if ctx.Err() != nil {
		c.stats.failed.Add(1)
		c.stats.recordError(utils.CategorizeError(ctx.Err()))
		return
	}

	u, err := url.Parse(item.Target)
	if err != nil || u.Hostname() == "" {
		ilog.Warnf("Unparseable target URL, dropping: %v", err)
		c.finishItem(item, models.StatusClientError, "Content_ParsingURL", 0)
		return
	}
	host := u.Hostname()

	decision := c.gate.Authorize(ctx, u, c.cfg.UserAgent)
	if !decision.Allow {
		ilog.Debug("Skipped by robots directives")
		c.stats.robotsSkipped.Add(1)
		c.finishItem(item, models.StatusUnset, "Policy_Robots", 0)
		return
	}
	if decision.Wait > 0 {
		select {
		case <-time.After(decision.Wait):
		case <-ctx.Done():
			c.stats.failed.Add(1)
			c.stats.recordError(utils.CategorizeError(ctx.Err()))
			return
		}
	}

	release, err := c.acquireSlots(ctx, host)
	if err != nil {
		ilog.Debugf("Could not acquire request slots: %v", err)
		c.stats.failed.Add(1)
		c.finishItem(item, models.StatusUnset, utils.CategorizeError(err), 0)
		return
	}
	defer release()

	c.gate.Commit(host)
	outcome, fetchErr := c.fetcher.Fetch(ctx, item.Target)
	c.gate.RecordOutcome(host, outcome.Status)

	if outcome.Status != models.StatusSuccess {
		category := utils.CategorizeError(fetchErr)
		switch outcome.Status {
		case models.StatusBlocked:
			ilog.WithField("attempts", outcome.Attempts).Warn("Target rejected the request (403)")
			c.stats.blocked.Add(1)
		default:
			ilog.WithFields(logrus.Fields{"attempts": outcome.Attempts, "category": category}).
				Warnf("Fetch failed: %v", fetchErr)
			c.stats.failed.Add(1)
		}
		c.stats.recordError(category)
		c.finishItem(item, outcome.Status, category, 0)
		return
	}
	c.stats.succeeded.Add(1)

	doc := extract.NewDocument(outcome.FinalURL, outcome.Body)
	newCount := c.harvest(item, doc, ilog)

	// Record the page result before scheduling follow-ups: if this page
	// retires the tag, the frontier then refuses its next page outright.
	c.settlePage(item.SourceTag, newCount)

	if c.cfg.Limits.MaxResults > 0 && c.dedup.Len() >= c.cfg.Limits.MaxResults {
		if c.transition(StateRunning, StateDraining) {
			c.log.WithField("max_results", c.cfg.Limits.MaxResults).
				Info("Result cap reached, draining in-flight work")
			c.cancel()
		}
	}

	if c.State() == StateRunning {
		c.scheduleNext(item, doc, ilog)
	}
	c.recordVisit(item, models.StatusSuccess, "None")
}

// harvest extracts, canonicalizes and stores candidates from a fetched
// page, returning the number of entities new to this run.
func (c *Coordinator) harvest(item *models.FrontierItem, doc *extract.Document, ilog *logrus.Entry) int {
	matches := c.extractor.Extract(doc)
	newCount := 0
	for _, m := range matches {
		key, ok := c.canon.Canonicalize(m.RawText)
		if !ok {
			continue
		}
		entity := models.CanonicalEntity{
			Key:       key,
			URL:       c.canon.URLFor(key),
			SourceTag: item.SourceTag,
			FirstSeen: time.Now(),
		}
		if !c.dedup.Insert(entity) {
			continue
		}
		newCount++
		if _, err := c.store.PutEntity(entity); err != nil {
			ilog.Errorf("Persisting entity %q failed: %v", key, err)
			c.stats.recordError(utils.CategorizeError(err))
		}
	}
	if newCount > 0 {
		ilog.WithFields(logrus.Fields{"matches": len(matches), "new": newCount}).Info("Entities discovered")
	}
	return newCount
}

// scheduleNext asks the item's provider for follow-up work.
func (c *Coordinator) scheduleNext(item *models.FrontierItem, doc *extract.Document, ilog *logrus.Entry) {
	providerName := item.SourceTag
	if i := strings.IndexByte(providerName, '/'); i >= 0 {
		providerName = providerName[:i]
	}
	p, ok := c.providers[providerName]
	if !ok {
		ilog.Errorf("No provider registered for source tag %q", item.SourceTag)
		return
	}
	for _, next := range p.NextItems(item, doc) {
		if next.Depth > c.cfg.Limits.MaxDepth {
			ilog.WithField("depth", next.Depth).Debug("Follow-up beyond depth limit, dropping")
			continue
		}
		if c.frontier.Add(next) {
			c.wg.Add(1)
		}
	}
}

// finishItem settles a page that produced no entities and writes its visit
// ledger entry.
func (c *Coordinator) finishItem(item *models.FrontierItem, status models.FetchStatus, category string, newCount int) {
	c.settlePage(item.SourceTag, newCount)
	c.recordVisit(item, status, category)
}

// settlePage reports the page yield to the frontier and settles accounting
// for any queued items the frontier discarded as a consequence.
func (c *Coordinator) settlePage(tag string, newCount int) {
	discarded := c.frontier.RecordPageResult(tag, newCount)
	for i := 0; i < discarded; i++ {
		c.wg.Done()
	}
}

func (c *Coordinator) recordVisit(item *models.FrontierItem, status models.FetchStatus, category string) {
	rec := &models.VisitRecord{
		Status:      status,
		LastAttempt: time.Now(),
		Depth:       item.Depth,
		PageIndex:   item.PageIndex,
		SourceTag:   item.SourceTag,
	}
	if category != "None" {
		rec.ErrorType = category
	}
	if err := c.store.MarkVisited(item.VisitKey(), rec); err != nil {
		c.log.Errorf("Recording visit for %q failed: %v", item.VisitKey(), err)
	}
}

// acquireSlots takes the global then the per-host semaphore, bounded by the
// configured acquire timeout. The returned func releases both.
func (c *Coordinator) acquireSlots(ctx context.Context, host string) (func(), error) {
	acquireCtx, cancel := context.WithTimeout(ctx, c.cfg.SemaphoreAcquireTimeout)
	defer cancel()

	if err := c.globalSem.Acquire(acquireCtx, 1); err != nil {
		if acquireCtx.Err() != nil && ctx.Err() == nil {
			return nil, utils.WrapErrorf(utils.ErrSemaphoreTimeout, "global slot for %s", host)
		}
		return nil, err
	}
	if err := c.hostSems.Acquire(acquireCtx, host); err != nil {
		c.globalSem.Release(1)
		if acquireCtx.Err() != nil && ctx.Err() == nil {
			return nil, utils.WrapErrorf(utils.ErrSemaphoreTimeout, "host slot for %s", host)
		}
		return nil, err
	}
	return func() {
		c.hostSems.Release(host)
		c.globalSem.Release(1)
	}, nil
}

func (c *Coordinator) reportProgress(done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.log.WithFields(logrus.Fields{
				"state":     c.State().String(),
				"pending":   c.frontier.Len(),
				"processed": c.stats.processed.Load(),
				"entities":  c.dedup.Len(),
				"attempts":  c.fetcher.TotalAttempts(),
			}).Info("Progress")
		case <-done:
			return
		}
	}
}

func (c *Coordinator) summary() models.RunSummary {
	return models.RunSummary{
		RunID:         c.runID,
		StartedAt:     c.startedAt,
		FinishedAt:    time.Now(),
		Outcome:       c.State().String(),
		Processed:     c.stats.processed.Load(),
		Succeeded:     c.stats.succeeded.Load(),
		Blocked:       c.stats.blocked.Load(),
		Failed:        c.stats.failed.Load(),
		RobotsSkipped: c.stats.robotsSkipped.Load(),
		RequestSlots:  c.fetcher.TotalAttempts(),
		Entities:      c.dedup.Len(),
	}
}
