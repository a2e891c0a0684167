package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const openLibraryBaseURL = "https://openlibrary.org"

// OpenLibrary searches the Open Library catalog. No key required.
type OpenLibrary struct {
	options
}

// NewOpenLibrary creates an Open Library book searcher.
func NewOpenLibrary(opts ...Option) *OpenLibrary {
	return &OpenLibrary{options: newOptions(openLibraryBaseURL, opts)}
}

type openLibraryDoc struct {
	Title      string   `json:"title"`
	AuthorName []string `json:"author_name"`
	Key        string   `json:"key"`
}

type openLibraryResponse struct {
	NumFound int              `json:"numFound"`
	Docs     []openLibraryDoc `json:"docs"`
}

// Search finds a book by title, narrowed by author when known.
func (s *OpenLibrary) Search(ctx context.Context, title, secondary string) (Match, error) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	query := url.Values{}
	query.Set("title", title)
	if secondary != "" {
		query.Set("author", secondary)
	}
	query.Set("limit", "5")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search.json?"+query.Encode(), nil)
	if err != nil {
		return Match{}, fmt.Errorf("creating open library request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Match{}, fmt.Errorf("calling open library: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Match{}, fmt.Errorf("reading open library response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Match{}, fmt.Errorf("open library returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed openLibraryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Match{}, fmt.Errorf("parsing open library response: %w", err)
	}

	if parsed.NumFound == 0 || len(parsed.Docs) == 0 {
		return Match{}, fmt.Errorf("open library book %q: %w", title, ErrNoMatch)
	}

	pick := parsed.Docs[0]

	author := ""
	if len(pick.AuthorName) > 0 {
		author = pick.AuthorName[0]
	}

	s.log.Debug("open library book match", "title", pick.Title, "author", author)

	return Match{
		Title:   pick.Title,
		Creator: author,
		Link:    s.baseURL + pick.Key,
	}, nil
}
