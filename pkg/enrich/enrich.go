// Package enrich looks up extracted metadata against public catalogs to
// attach canonical titles, creators, and links. Lookups are best-effort;
// callers treat failures as a missing link, never a failed item.
package enrich

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mitgor/screensort/pkg/logger"
)

// ErrNoMatch means the catalog returned no results for the query.
var ErrNoMatch = errors.New("no match found")

// Match is a catalog hit.
type Match struct {
	Title   string `json:"title"`
	Creator string `json:"creator,omitempty"`
	Link    string `json:"link,omitempty"`
}

// VideoSearcher finds a watchable video for a song. secondary is the
// artist, empty when unknown.
type VideoSearcher interface {
	Search(ctx context.Context, title, secondary string) (Match, error)
}

// MovieSearcher finds a movie's catalog entry. secondary is the release
// year as digits, empty when unknown.
type MovieSearcher interface {
	Search(ctx context.Context, title, secondary string) (Match, error)
}

// BookSearcher finds a book's catalog entry. secondary is the author,
// empty when unknown.
type BookSearcher interface {
	Search(ctx context.Context, title, secondary string) (Match, error)
}

// Playlist collects song links into a named shared playlist.
type Playlist interface {
	// GetOrCreate resolves a playlist name to its id, creating the
	// playlist when absent. Same name always yields the same id.
	GetOrCreate(ctx context.Context, name string) (string, error)

	// Add appends a link to the playlist.
	Add(ctx context.Context, playlistID, link string) error
}

type options struct {
	baseURL string
	log     *slog.Logger
}

// Option configures an enrichment client.
type Option func(*options)

// WithBaseURL overrides the catalog endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func newOptions(defaultURL string, opts []Option) options {
	o := options{
		baseURL: defaultURL,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
