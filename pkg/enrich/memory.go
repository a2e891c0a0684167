package enrich

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemorySearcher serves matches from a fixed table, keyed by lowercase
// title. Implements all three searcher interfaces.
type MemorySearcher struct {
	mu      sync.Mutex
	matches map[string]Match
	queries []string

	// Err, when set, fails every search.
	Err error
}

// NewMemorySearcher creates an empty in-memory searcher.
func NewMemorySearcher() *MemorySearcher {
	return &MemorySearcher{matches: make(map[string]Match)}
}

// Put registers a match for a title.
func (s *MemorySearcher) Put(title string, match Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[strings.ToLower(title)] = match
}

// Search returns the registered match for the title.
func (s *MemorySearcher) Search(_ context.Context, title, secondary string) (Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries = append(s.queries, title+"|"+secondary)

	if s.Err != nil {
		return Match{}, s.Err
	}

	match, ok := s.matches[strings.ToLower(title)]
	if !ok {
		return Match{}, fmt.Errorf("memory search %q: %w", title, ErrNoMatch)
	}
	return match, nil
}

// Queries returns every search made, formatted "title|secondary".
func (s *MemorySearcher) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.queries))
	copy(out, s.queries)
	return out
}

// MemoryPlaylist keeps playlists in process memory.
type MemoryPlaylist struct {
	mu     sync.Mutex
	ids    map[string]string
	items  map[string][]string
	nextID int

	// GetOrCreateCalls counts GetOrCreate invocations.
	GetOrCreateCalls int

	// GetOrCreateErr, when set, fails GetOrCreate.
	GetOrCreateErr error

	// AddErr, when set, fails Add.
	AddErr error
}

// NewMemoryPlaylist creates an empty in-memory playlist service.
func NewMemoryPlaylist() *MemoryPlaylist {
	return &MemoryPlaylist{
		ids:   make(map[string]string),
		items: make(map[string][]string),
	}
}

// GetOrCreate resolves a playlist name to a stable id.
func (p *MemoryPlaylist) GetOrCreate(_ context.Context, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.GetOrCreateCalls++

	if p.GetOrCreateErr != nil {
		return "", p.GetOrCreateErr
	}

	if id, ok := p.ids[name]; ok {
		return id, nil
	}

	p.nextID++
	id := fmt.Sprintf("playlist-%d", p.nextID)
	p.ids[name] = id
	p.items[id] = nil
	return id, nil
}

// Add appends a link to the playlist.
func (p *MemoryPlaylist) Add(_ context.Context, playlistID, link string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.AddErr != nil {
		return p.AddErr
	}

	if _, ok := p.items[playlistID]; !ok {
		return fmt.Errorf("playlist %q does not exist", playlistID)
	}

	p.items[playlistID] = append(p.items[playlistID], link)
	return nil
}

// Links returns the links added to a playlist, in order.
func (p *MemoryPlaylist) Links(playlistID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, len(p.items[playlistID]))
	copy(out, p.items[playlistID])
	return out
}
