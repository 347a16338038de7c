package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"shopfinder/pkg/log"
	"shopfinder/pkg/models"
	"shopfinder/pkg/utils"
)

const (
	entityKeyPrefix = "entity:" // canonical entities, keyed by host
	visitKeyPrefix  = "visit:"  // visit ledger, keyed by (source tag | target)
	resultsDBDir    = "results_db"
)

// BadgerStore implements RunStore on BadgerDB.
type BadgerStore struct {
	db          *badger.DB
	log         *logrus.Entry
	entityCount atomic.Int64 // cached for O(1) EntityCount
}

// NewBadgerStore opens (or recreates) the results database under stateDir.
// With resume=false any existing state is removed first.
func NewBadgerStore(stateDir string, resume bool, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{log: logger}
	dbPath := filepath.Join(stateDir, resultsDBDir)

	if !resume {
		logger.Warnf("Resume flag is false. Removing existing state directory: %s", dbPath)
		if err := os.RemoveAll(dbPath); err != nil {
			logger.Errorf("Failed to remove existing state directory %s: %v", dbPath, err)
		}
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("cannot create state directory %s: %w", dbPath, err)
	}

	opts := badger.DefaultOptions(dbPath).
		WithLogger(&log.BadgerAdapter{Entry: logger.WithField("component", "badgerdb")}).
		WithNumVersionsToKeep(1)

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", dbPath, err)
	}

	if resume {
		count, err := store.countEntities()
		if err != nil {
			logger.Warnf("Failed to count existing entities on resume: %v", err)
		} else {
			store.entityCount.Store(count)
			logger.Infof("Loaded existing entity count on resume: %d", count)
		}
	}

	logger.Infof("Results database initialized at %s (resume: %v)", dbPath, resume)
	return store, nil
}

func (s *BadgerStore) countEntities() (int64, error) {
	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(entityKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for transaction conflicts.
// Concurrent MVCC transactions on overlapping keys can return
// badger.ErrConflict; these resolve in microseconds.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// PutEntity implements RunStore. First writer wins on the key.
func (s *BadgerStore) PutEntity(e models.CanonicalEntity) (bool, error) {
	if s.db == nil {
		return false, errors.New("results DB not initialized")
	}
	key := []byte(entityKeyPrefix + e.Key)
	value, err := json.Marshal(e)
	if err != nil {
		return false, utils.WrapErrorf(utils.ErrParsing, "JSON marshal of entity %q: %v", e.Key, err)
	}

	added := false
	err = s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			errSet := txn.SetEntry(badger.NewEntry(key, value))
			if errSet == nil {
				added = true
			}
			return errSet
		}
		return errGet
	})
	if err != nil {
		return false, fmt.Errorf("%w: storing entity %q: %w", utils.ErrDatabase, e.Key, err)
	}
	if added {
		s.entityCount.Add(1)
	}
	return added, nil
}

// LoadEntities implements RunStore.
func (s *BadgerStore) LoadEntities(ctx context.Context) ([]models.CanonicalEntity, error) {
	var entities []models.CanonicalEntity
	decodeErrors := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(entityKeyPrefix)

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				var e models.CanonicalEntity
				if errJSON := json.Unmarshal(val, &e); errJSON != nil {
					decodeErrors++
					s.log.Warnf("Skipping undecodable entity %s: %v", it.Item().Key(), errJSON)
					return nil
				}
				entities = append(entities, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return entities, fmt.Errorf("%w: loading entities: %w", utils.ErrDatabase, err)
	}
	if decodeErrors > 0 {
		s.log.Warnf("Loaded %d entities with %d decode errors", len(entities), decodeErrors)
	}
	return entities, nil
}

// MarkVisited implements RunStore. Later records overwrite earlier ones so
// the ledger reflects the most recent processing outcome.
func (s *BadgerStore) MarkVisited(visitKey string, rec *models.VisitRecord) error {
	if s.db == nil {
		return errors.New("results DB not initialized")
	}
	key := []byte(visitKeyPrefix + visitKey)
	value, err := json.Marshal(rec)
	if err != nil {
		return utils.WrapErrorf(utils.ErrParsing, "JSON marshal of visit record %q: %v", visitKey, err)
	}
	err = s.dbUpdate(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, value))
	})
	if err != nil {
		return fmt.Errorf("%w: marking visit %q: %w", utils.ErrDatabase, visitKey, err)
	}
	return nil
}

// EntityCount implements RunStore.
func (s *BadgerStore) EntityCount() int64 {
	return s.entityCount.Load()
}

// RunGC runs BadgerDB's value log garbage collection periodically.
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				continue
			}
			var err error
			for {
				err = s.db.RunValueLogGC(0.5)
				if err != nil {
					break
				}
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}
		case <-ctx.Done():
			s.log.Debugf("Stopping BadgerDB garbage collection: %v", ctx.Err())
			return
		}
	}
}

// Close implements RunStore.
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Error closing results DB: %v", err)
			return err
		}
		s.log.Debug("Results DB closed")
	}
	return nil
}
