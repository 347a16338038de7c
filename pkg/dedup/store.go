package dedup

import (
	"sort"
	"sync"

	"shopfinder/pkg/models"
)

// Store is the in-memory canonical entity set. Insertion is first-writer
// wins on the key; later sightings of the same key never change the stored
// entity. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	entities map[string]models.CanonicalEntity
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entities: make(map[string]models.CanonicalEntity)}
}

// Insert adds an entity if its key is new. Returns true when the entity was
// added, false when the key already existed (the stored entity is kept).
func (s *Store) Insert(e models.CanonicalEntity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[e.Key]; exists {
		return false
	}
	s.entities[e.Key] = e
	return true
}

// Contains reports whether key is present.
func (s *Store) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[key]
	return ok
}

// Len returns the current entity count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Merge folds another store into this one. The key set becomes the union;
// for keys present in both, the other store's entity wins, so merging
// fresher state over older state keeps the latest URI.
func (s *Store) Merge(other *Store) {
	other.mu.RLock()
	snapshot := make([]models.CanonicalEntity, 0, len(other.entities))
	for _, e := range other.entities {
		snapshot = append(snapshot, e)
	}
	other.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range snapshot {
		s.entities[e.Key] = e
	}
}

// Preload inserts persisted entities without overwriting live ones, used
// when resuming a run from the datastore.
func (s *Store) Preload(entities []models.CanonicalEntity) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	loaded := 0
	for _, e := range entities {
		if _, exists := s.entities[e.Key]; !exists {
			s.entities[e.Key] = e
			loaded++
		}
	}
	return loaded
}

// Entities returns a stable, key-sorted snapshot.
func (s *Store) Entities() []models.CanonicalEntity {
	s.mu.RLock()
	out := make([]models.CanonicalEntity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
