package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const itunesBaseURL = "https://itunes.apple.com"

const searchTimeout = 30 * time.Second

// ITunes searches the iTunes catalog for music videos. No key required.
type ITunes struct {
	options
}

// NewITunes creates an iTunes video searcher.
func NewITunes(opts ...Option) *ITunes {
	return &ITunes{options: newOptions(itunesBaseURL, opts)}
}

type itunesResult struct {
	TrackName    string `json:"trackName"`
	ArtistName   string `json:"artistName"`
	TrackViewURL string `json:"trackViewUrl"`
}

type itunesResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []itunesResult `json:"results"`
}

// Search finds a music video for the song, preferring a result whose
// artist matches when one is known.
func (s *ITunes) Search(ctx context.Context, title, secondary string) (Match, error) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	term := title
	if secondary != "" {
		term = title + " " + secondary
	}

	query := url.Values{}
	query.Set("term", term)
	query.Set("media", "musicVideo")
	query.Set("entity", "musicVideo")
	query.Set("limit", "5")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search?"+query.Encode(), nil)
	if err != nil {
		return Match{}, fmt.Errorf("creating itunes request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Match{}, fmt.Errorf("calling itunes: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Match{}, fmt.Errorf("reading itunes response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Match{}, fmt.Errorf("itunes returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed itunesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Match{}, fmt.Errorf("parsing itunes response: %w", err)
	}

	if parsed.ResultCount == 0 || len(parsed.Results) == 0 {
		return Match{}, fmt.Errorf("itunes video for %q: %w", title, ErrNoMatch)
	}

	pick := parsed.Results[0]
	if secondary != "" {
		for _, r := range parsed.Results {
			if strings.EqualFold(r.ArtistName, secondary) {
				pick = r
				break
			}
		}
	}

	s.log.Debug("itunes video match", "title", pick.TrackName, "artist", pick.ArtistName)

	return Match{
		Title:   pick.TrackName,
		Creator: pick.ArtistName,
		Link:    pick.TrackViewURL,
	}, nil
}
