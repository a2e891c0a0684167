// Package memory implements library.Library in memory for tests and
// pipeline scenarios.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mitgor/screensort/pkg/library"
	"github.com/mitgor/screensort/pkg/screenshot"
)

// Library holds screenshots in a map. Failure knobs let tests force the
// error paths a real library can hit.
type Library struct {
	// mu guards every map below
	mu sync.RWMutex

	shots        map[string]screenshot.Screenshot
	order        []string
	destinations map[screenshot.ContentType]bool
	moved        map[string]screenshot.ContentType
	notes        map[string]string

	// AuthErr is returned from Authorized when set.
	AuthErr error
	// ListErr is returned from List when set.
	ListErr error
	// MoveErrs forces Move to fail for specific ids.
	MoveErrs map[string]error
	// AnnotateErrs forces Annotate to fail for specific ids.
	AnnotateErrs map[string]error
	// EnsureErrs forces EnsureDestination to fail for specific types.
	EnsureErrs map[screenshot.ContentType]error
}

var _ library.Library = (*Library)(nil)

// NewLibrary creates an empty in-memory library.
func NewLibrary() *Library {
	return &Library{
		shots:        make(map[string]screenshot.Screenshot),
		destinations: make(map[screenshot.ContentType]bool),
		moved:        make(map[string]screenshot.ContentType),
		notes:        make(map[string]string),
		MoveErrs:     make(map[string]error),
		AnnotateErrs: make(map[string]error),
		EnsureErrs:   make(map[screenshot.ContentType]error),
	}
}

// Add seeds a screenshot. Insertion order is list order.
func (l *Library) Add(shot screenshot.Screenshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.shots[shot.ID]; !ok {
		l.order = append(l.order, shot.ID)
	}
	l.shots[shot.ID] = shot
}

// Remove deletes a screenshot, simulating the user deleting a capture.
func (l *Library) Remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.shots, id)
	for i, existing := range l.order {
		if existing == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

func (l *Library) Authorized(_ context.Context) error {
	return l.AuthErr
}

func (l *Library) List(_ context.Context) ([]screenshot.Screenshot, error) {
	if l.ListErr != nil {
		return nil, l.ListErr
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	shots := make([]screenshot.Screenshot, 0, len(l.order))
	for _, id := range l.order {
		if _, ok := l.moved[id]; ok {
			continue
		}
		shots = append(shots, l.shots[id])
	}

	return shots, nil
}

func (l *Library) EnsureDestination(_ context.Context, t screenshot.ContentType) error {
	if err := l.EnsureErrs[t]; err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.destinations[t] = true
	return nil
}

func (l *Library) Move(_ context.Context, id string, t screenshot.ContentType) error {
	if err := l.MoveErrs[id]; err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.shots[id]; !ok {
		return library.ErrNotFound{ID: id}
	}
	if !l.destinations[t] {
		return fmt.Errorf("destination %q does not exist", t)
	}

	l.moved[id] = t
	return nil
}

func (l *Library) Annotate(_ context.Context, id string, note string) error {
	if err := l.AnnotateErrs[id]; err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.shots[id]; !ok {
		return library.ErrNotFound{ID: id}
	}

	l.notes[id] = note
	return nil
}

func (l *Library) Existing(_ context.Context, ids []string) (map[string]bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		_, ok := l.shots[id]
		out[id] = ok
	}

	return out, nil
}

// HasDestination reports whether a destination was ensured.
func (l *Library) HasDestination(t screenshot.ContentType) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.destinations[t]
}

// MovedTo returns the destination a screenshot was moved to, if any.
func (l *Library) MovedTo(id string) (screenshot.ContentType, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.moved[id]
	return t, ok
}

// Note returns the note attached to a screenshot, if any.
func (l *Library) Note(id string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	note, ok := l.notes[id]
	return note, ok
}
