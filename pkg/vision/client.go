package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mitgor/screensort/pkg/dotdir"
	"github.com/mitgor/screensort/pkg/screenshot"
)

// Client calls an OCR service over HTTP. The service shares access to the
// captures directory, so requests carry only the screenshot id.
type Client struct {
	endpoint  string
	log       *slog.Logger
	snapshots *dotdir.Manager
}

var _ Transcriber = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Debug level also enables fragment snapshots
// when a snapshot manager is configured.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithSnapshots enables writing fragment snapshots to the dot directory
// for debugging.
func WithSnapshots(ddm *dotdir.Manager) Option {
	return func(c *Client) {
		c.snapshots = ddm
	}
}

// NewClient creates an OCR client for the given endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{endpoint: endpoint}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type transcribeRequest struct {
	ScreenshotID string `json:"screenshot_id"`
}

type transcribeResponse struct {
	Fragments []struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
		Y          float64 `json:"y"`
	} `json:"fragments"`
	Error string `json:"error,omitempty"`
}

// Transcribe posts the screenshot id to the OCR service and returns the
// recognized fragments sorted top to bottom.
func (c *Client) Transcribe(ctx context.Context, shot screenshot.Screenshot) ([]screenshot.Fragment, error) {
	data, err := json.Marshal(transcribeRequest{ScreenshotID: shot.ID})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr service error (status %d): %s", resp.StatusCode, string(body))
	}

	var result transcribeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if result.Error != "" {
		return nil, fmt.Errorf("ocr error: %s", result.Error)
	}

	fragments := make([]screenshot.Fragment, 0, len(result.Fragments))
	for _, f := range result.Fragments {
		fragments = append(fragments, screenshot.Fragment{
			Text:       f.Text,
			Confidence: f.Confidence,
			Y:          f.Y,
		})
	}
	screenshot.SortFragments(fragments)

	c.snapshot(ctx, shot.ID, fragments)

	return fragments, nil
}

// snapshot writes the fragments to the dot directory when debug logging
// is on. Failures only log.
func (c *Client) snapshot(ctx context.Context, screenshotID string, fragments []screenshot.Fragment) {
	if c.snapshots == nil || c.log == nil || !c.log.Enabled(ctx, slog.LevelDebug) {
		return
	}

	snap := &dotdir.FragmentSnapshot{
		ScreenshotID: screenshotID,
		Fragments:    fragments,
	}
	if err := c.snapshots.SaveFragmentSnapshot(snap, ""); err != nil {
		c.log.Debug("fragment snapshot failed", "screenshot", screenshotID, "error", err)
		return
	}
	c.log.Debug("fragment snapshot written", "screenshot", screenshotID)
}
