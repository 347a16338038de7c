package storage

import (
	"context"
	"time"

	"shopfinder/pkg/models"
)

// RunStore persists discovery results across runs: the canonical entity set
// and the visit ledger recording how each frontier item was processed.
type RunStore interface {
	// PutEntity stores a canonical entity. Existing keys are not
	// overwritten; returns true when the entity was new.
	PutEntity(e models.CanonicalEntity) (bool, error)

	// LoadEntities streams all persisted entities, used to preload the
	// dedup set when resuming.
	LoadEntities(ctx context.Context) ([]models.CanonicalEntity, error)

	// MarkVisited records the processing outcome for a frontier item.
	MarkVisited(visitKey string, rec *models.VisitRecord) error

	// EntityCount returns the cached persisted entity count.
	EntityCount() int64

	// RunGC runs the backend's garbage collection until ctx is done.
	RunGC(ctx context.Context, interval time.Duration)

	Close() error
}
