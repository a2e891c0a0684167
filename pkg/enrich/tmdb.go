package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

const tmdbBaseURL = "https://api.themoviedb.org/3"

// TMDB searches The Movie Database. Requires a v3 API key.
type TMDB struct {
	apiKey string
	options
}

// NewTMDB creates a TMDb movie searcher.
func NewTMDB(apiKey string, opts ...Option) *TMDB {
	return &TMDB{
		apiKey:  apiKey,
		options: newOptions(tmdbBaseURL, opts),
	}
}

type tmdbResult struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}

type tmdbResponse struct {
	Results []tmdbResult `json:"results"`
}

// Search finds a movie by title, narrowed by release year when known.
func (s *TMDB) Search(ctx context.Context, title, secondary string) (Match, error) {
	if s.apiKey == "" {
		return Match{}, fmt.Errorf("tmdb api key not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	query := url.Values{}
	query.Set("api_key", s.apiKey)
	query.Set("query", title)
	if _, err := strconv.Atoi(secondary); err == nil && secondary != "" {
		query.Set("year", secondary)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search/movie?"+query.Encode(), nil)
	if err != nil {
		return Match{}, fmt.Errorf("creating tmdb request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Match{}, fmt.Errorf("calling tmdb: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Match{}, fmt.Errorf("reading tmdb response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Match{}, fmt.Errorf("tmdb returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed tmdbResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Match{}, fmt.Errorf("parsing tmdb response: %w", err)
	}

	if len(parsed.Results) == 0 {
		return Match{}, fmt.Errorf("tmdb movie %q: %w", title, ErrNoMatch)
	}

	pick := parsed.Results[0]

	s.log.Debug("tmdb movie match", "title", pick.Title, "id", pick.ID)

	return Match{
		Title: pick.Title,
		Link:  fmt.Sprintf("https://www.themoviedb.org/movie/%d", pick.ID),
	}, nil
}
