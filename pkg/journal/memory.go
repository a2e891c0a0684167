package journal

import (
	"context"
	"strings"
	"sync"
)

// MemoryAppender keeps the journal in process memory, de-duplicating on
// type, title, and creator, case-insensitive.
type MemoryAppender struct {
	mu      sync.Mutex
	seen    map[string]bool
	entries []Entry

	// Err, when set, fails every append.
	Err error
}

// NewMemoryAppender creates an empty in-memory journal.
func NewMemoryAppender() *MemoryAppender {
	return &MemoryAppender{seen: make(map[string]bool)}
}

// Append stores the entry, reporting false for duplicates.
func (a *MemoryAppender) Append(_ context.Context, entry Entry) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Err != nil {
		return false, a.Err
	}

	key := strings.ToLower(string(entry.Type) + "|" + entry.Title + "|" + entry.Creator)
	if a.seen[key] {
		return false, nil
	}

	a.seen[key] = true
	a.entries = append(a.entries, entry)
	return true, nil
}

// Entries returns appended entries in order, duplicates excluded.
func (a *MemoryAppender) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}
