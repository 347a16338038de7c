package crawler

import (
	"sync"
	"sync/atomic"
)

// runStats aggregates counters across workers.
type runStats struct {
	processed     atomic.Int64
	succeeded     atomic.Int64
	blocked       atomic.Int64
	failed        atomic.Int64
	robotsSkipped atomic.Int64

	mu         sync.Mutex
	errorTypes map[string]int64
}

func newRunStats() *runStats {
	return &runStats{errorTypes: make(map[string]int64)}
}

func (s *runStats) recordError(category string) {
	s.mu.Lock()
	s.errorTypes[category]++
	s.mu.Unlock()
}

// errorBreakdown returns a copy of the per-category error counts.
func (s *runStats) errorBreakdown() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.errorTypes))
	for k, v := range s.errorTypes {
		out[k] = v
	}
	return out
}
