// Package library defines where screenshots come from and where sorted
// images end up. The pipeline only sees this interface; the fs
// implementation talks to a local captures directory and the memory
// implementation backs tests.
package library

import (
	"context"

	"github.com/mitgor/screensort/pkg/screenshot"
)

// Library is the source and destination store for screenshots.
type Library interface {
	// Authorized reports whether the library can be read at all. It runs
	// before any batch work so permission problems surface as a single
	// batch-level error instead of per-item noise.
	Authorized(ctx context.Context) error

	// List returns the screenshots waiting to be sorted, oldest first.
	List(ctx context.Context) ([]screenshot.Screenshot, error)

	// EnsureDestination creates the destination for a content type if it
	// does not exist. Idempotent, safe to call concurrently per type.
	EnsureDestination(ctx context.Context, t screenshot.ContentType) error

	// Move files a screenshot into the destination for its content type.
	Move(ctx context.Context, id string, t screenshot.ContentType) error

	// Annotate attaches a note to a screenshot. Callers treat failures as
	// best-effort.
	Annotate(ctx context.Context, id string, note string) error

	// Existing reports which of the given ids still exist anywhere in the
	// library, sorted or not.
	Existing(ctx context.Context, ids []string) (map[string]bool, error)
}

// ErrNotFound is returned when a screenshot id is unknown to the library.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	if e.ID == "" {
		return "screenshot not found"
	}

	return "screenshot not found: " + e.ID
}
