// Package cache persists the processed-screenshot set and the last batch of
// result records. The processed set is the crash-safety primitive: each id is
// written through immediately after its screenshot finishes, so an
// interrupted run never reprocesses completed items. Results are saved as a
// whole collection once per batch.
package cache

import (
	"context"
	"fmt"

	"github.com/mitgor/screensort/pkg/screenshot"
)

// Store is the durable bookkeeping backend for the pipeline.
//
// All operations are local and synchronous from the orchestrator's point of
// view. Load methods recover corruption as empty collections: a lost cache
// is recoverable (items get reprocessed), a crash on load is not.
type Store interface {
	// MarkProcessed adds an id to the processed set. Idempotent, and
	// persisted before it returns; this is the write the crash-safety
	// contract depends on.
	MarkProcessed(ctx context.Context, id string) error

	// IsProcessed reports whether an id is in the processed set.
	IsProcessed(ctx context.Context, id string) (bool, error)

	// LoadProcessedSet returns the full processed set.
	LoadProcessedSet(ctx context.Context) (map[string]bool, error)

	// SaveResults replaces the stored result collection with records,
	// atomically. Record order is preserved across a save/load cycle,
	// as are record identifiers.
	SaveResults(ctx context.Context, records []screenshot.ResultRecord) error

	// LoadResults returns the last saved result collection in saved order.
	LoadResults(ctx context.Context) ([]screenshot.ResultRecord, error)

	// RemoveProcessed deletes ids from the processed set.
	RemoveProcessed(ctx context.Context, ids []string) error

	// RemoveResults deletes result records by screenshot id.
	RemoveResults(ctx context.Context, screenshotIDs []string) error

	// Close releases the underlying resources.
	Close() error
}

// ExistenceChecker reports which screenshot ids still exist in the source
// library. Satisfied by library.Library.
type ExistenceChecker interface {
	Existing(ctx context.Context, ids []string) (map[string]bool, error)
}

// CleanupStale removes cache entries whose screenshots no longer exist in
// the source library: dead ids leave the processed set and their result
// records go with them. Returns the removed ids.
//
// Runs off the critical path, typically in the background at session start;
// it must never block result display.
func CleanupStale(ctx context.Context, store Store, checker ExistenceChecker) ([]string, error) {
	processed, err := store.LoadProcessedSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading processed set: %w", err)
	}

	records, err := store.LoadResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading results: %w", err)
	}

	// Check everything the cache knows about, not just the processed set,
	// so orphaned records are cleaned up too.
	known := make(map[string]bool, len(processed)+len(records))
	for id := range processed {
		known[id] = true
	}
	for _, rec := range records {
		known[rec.ScreenshotID] = true
	}

	if len(known) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(known))
	for id := range known {
		ids = append(ids, id)
	}

	existing, err := checker.Existing(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("checking screenshot existence: %w", err)
	}

	dead := make([]string, 0)
	for _, id := range ids {
		if !existing[id] {
			dead = append(dead, id)
		}
	}

	if len(dead) == 0 {
		return nil, nil
	}

	if err := store.RemoveProcessed(ctx, dead); err != nil {
		return nil, fmt.Errorf("removing stale processed ids: %w", err)
	}
	if err := store.RemoveResults(ctx, dead); err != nil {
		return nil, fmt.Errorf("removing stale results: %w", err)
	}

	return dead, nil
}
