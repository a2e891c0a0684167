package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mitgor/screensort/pkg/logger"
)

const appendTimeout = 30 * time.Second

// HTTPAppender posts entries to a journal service over JSON HTTP.
type HTTPAppender struct {
	endpoint string
	log      *slog.Logger
}

// HTTPOption configures an HTTPAppender.
type HTTPOption func(*HTTPAppender)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) HTTPOption {
	return func(a *HTTPAppender) {
		a.log = log
	}
}

// NewHTTPAppender creates a journal client for the given service
// endpoint.
func NewHTTPAppender(endpoint string, opts ...HTTPOption) *HTTPAppender {
	a := &HTTPAppender{
		endpoint: endpoint,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type appendResponse struct {
	Added bool   `json:"added"`
	Error string `json:"error,omitempty"`
}

// Append posts the entry and reports whether the service stored it as
// new.
func (a *HTTPAppender) Append(ctx context.Context, entry Entry) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, appendTimeout)
	defer cancel()

	reqBody, err := json.Marshal(entry)
	if err != nil {
		return false, fmt.Errorf("marshaling journal entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/entries", bytes.NewReader(reqBody))
	if err != nil {
		return false, fmt.Errorf("creating journal request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("calling journal service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("reading journal response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("journal service returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed appendResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, fmt.Errorf("parsing journal response: %w", err)
	}

	if parsed.Error != "" {
		return false, fmt.Errorf("journal service error: %s", parsed.Error)
	}

	a.log.Debug("journal entry appended", "title", entry.Title, "added", parsed.Added)

	return parsed.Added, nil
}
