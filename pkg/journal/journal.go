// Package journal records sorted media in an external log service so a
// batch leaves a durable, human-readable trail beyond the results cache.
package journal

import (
	"context"
	"time"

	"github.com/mitgor/screensort/pkg/screenshot"
)

// Entry is one journal line: what was found and where it points.
type Entry struct {
	Type    screenshot.ContentType `json:"type"`
	Title   string                 `json:"title"`
	Creator string                 `json:"creator,omitempty"`
	Link    string                 `json:"link,omitempty"`
	NotedAt time.Time              `json:"noted_at"`
}

// Appender writes entries to the journal. The journal de-duplicates;
// Append reports whether the entry was newly added.
type Appender interface {
	Append(ctx context.Context, entry Entry) (bool, error)
}
