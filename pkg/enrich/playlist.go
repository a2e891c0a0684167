package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// HTTPPlaylist talks to a playlist service over JSON HTTP. The service
// owns playlist identity; GetOrCreate with the same name always resolves
// to the same id.
type HTTPPlaylist struct {
	options
}

// NewHTTPPlaylist creates a playlist client for the given service
// endpoint.
func NewHTTPPlaylist(endpoint string, opts ...Option) *HTTPPlaylist {
	return &HTTPPlaylist{options: newOptions(endpoint, opts)}
}

type playlistRequest struct {
	Name string `json:"name"`
}

type playlistResponse struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

type playlistItemRequest struct {
	Link string `json:"link"`
}

type playlistItemResponse struct {
	Error string `json:"error,omitempty"`
}

// GetOrCreate resolves a playlist name to its id.
func (p *HTTPPlaylist) GetOrCreate(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	reqBody, err := json.Marshal(playlistRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("marshaling playlist request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/playlists", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("creating playlist request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling playlist service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading playlist response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("playlist service returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed playlistResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parsing playlist response: %w", err)
	}

	if parsed.Error != "" {
		return "", fmt.Errorf("playlist service error: %s", parsed.Error)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("playlist service returned no id for %q", name)
	}

	p.log.Debug("playlist resolved", "name", name, "id", parsed.ID)

	return parsed.ID, nil
}

// Add appends a link to the playlist.
func (p *HTTPPlaylist) Add(ctx context.Context, playlistID, link string) error {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	reqBody, err := json.Marshal(playlistItemRequest{Link: link})
	if err != nil {
		return fmt.Errorf("marshaling playlist item: %w", err)
	}

	target := p.baseURL + "/playlists/" + url.PathEscape(playlistID) + "/items"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("creating playlist item request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling playlist service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading playlist item response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("playlist service returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed playlistItemResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("parsing playlist item response: %w", err)
	}

	if parsed.Error != "" {
		return fmt.Errorf("playlist service error: %s", parsed.Error)
	}

	return nil
}
