// Package inmemory provides a map-backed cache store for tests and dry runs.
package inmemory

import (
	"context"
	"sync"

	"github.com/mitgor/screensort/pkg/cache"
	"github.com/mitgor/screensort/pkg/screenshot"
)

// Store implements cache.Store using in-memory maps. Nothing survives the
// process; dry runs use it so a rehearsal never taints the durable cache.
type Store struct {
	// mu guards processed and results
	mu sync.RWMutex

	processed map[string]bool
	results   []screenshot.ResultRecord
}

var _ cache.Store = (*Store)(nil)

// NewStore creates an empty in-memory cache store.
func NewStore() *Store {
	return &Store{
		processed: make(map[string]bool),
	}
}

// MarkProcessed adds an id to the processed set. Idempotent.
func (s *Store) MarkProcessed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.processed[id] = true
	return nil
}

// IsProcessed reports whether an id is in the processed set.
func (s *Store) IsProcessed(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.processed[id], nil
}

// LoadProcessedSet returns a copy of the processed set.
func (s *Store) LoadProcessedSet(_ context.Context) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[string]bool, len(s.processed))
	for id := range s.processed {
		set[id] = true
	}
	return set, nil
}

// SaveResults replaces the stored result collection.
func (s *Store) SaveResults(_ context.Context, records []screenshot.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make([]screenshot.ResultRecord, len(records))
	copy(s.results, records)
	return nil
}

// LoadResults returns a copy of the last saved result collection.
func (s *Store) LoadResults(_ context.Context) ([]screenshot.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]screenshot.ResultRecord, len(s.results))
	copy(records, s.results)
	return records, nil
}

// RemoveProcessed deletes ids from the processed set.
func (s *Store) RemoveProcessed(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.processed, id)
	}
	return nil
}

// RemoveResults deletes result records by screenshot id.
func (s *Store) RemoveResults(_ context.Context, screenshotIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]bool, len(screenshotIDs))
	for _, id := range screenshotIDs {
		drop[id] = true
	}

	kept := s.results[:0]
	for _, rec := range s.results {
		if !drop[rec.ScreenshotID] {
			kept = append(kept, rec)
		}
	}
	s.results = kept
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
