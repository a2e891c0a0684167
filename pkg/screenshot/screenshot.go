// Package screenshot defines the domain types for the screenshot sorting
// pipeline: captured items, transcribed text fragments, content-type labels,
// per-type extracted metadata, and durable result records.
package screenshot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContentType is the closed set of labels a screenshot can classify as.
type ContentType string

const (
	ContentTypeMusic   ContentType = "music"
	ContentTypeMovie   ContentType = "movie"
	ContentTypeBook    ContentType = "book"
	ContentTypeMeme    ContentType = "meme"
	ContentTypeUnknown ContentType = "unknown"
)

// ContentTypes returns all labels in a stable order.
func ContentTypes() []ContentType {
	return []ContentType{
		ContentTypeMusic,
		ContentTypeMovie,
		ContentTypeBook,
		ContentTypeMeme,
		ContentTypeUnknown,
	}
}

// DestinationTypes returns the labels that have an organization destination.
// Unknown items are never moved.
func DestinationTypes() []ContentType {
	return []ContentType{
		ContentTypeMusic,
		ContentTypeMovie,
		ContentTypeBook,
		ContentTypeMeme,
	}
}

// IsValid reports whether c is one of the defined labels.
func (c ContentType) IsValid() bool {
	switch c {
	case ContentTypeMusic, ContentTypeMovie, ContentTypeBook, ContentTypeMeme, ContentTypeUnknown:
		return true
	}
	return false
}

// ParseContentType converts a stored label string back to a ContentType.
// Unrecognized labels map to ContentTypeUnknown so stale rows stay readable.
func ParseContentType(s string) ContentType {
	c := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if c.IsValid() {
		return c
	}
	return ContentTypeUnknown
}

// Status is the terminal outcome of processing one screenshot.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFlagged Status = "flagged"
	StatusFailed  Status = "failed"
)

// IsValid reports whether s is one of the defined statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusSuccess, StatusFlagged, StatusFailed:
		return true
	}
	return false
}

// Screenshot is one captured image reported by the library. The pipeline
// never copies pixel data; it carries the identifier and derived metadata.
type Screenshot struct {
	// ID is the stable opaque identifier assigned by the library.
	ID string `json:"id"`
	// CapturedAt is when the image was captured, best known value.
	CapturedAt time.Time `json:"captured_at"`
	// Note is the free-form annotation attached to the item, if any.
	Note string `json:"note,omitempty"`
}

// Fragment is one transcribed line of text from a screenshot.
type Fragment struct {
	Text string `json:"text"`
	// Confidence is the transcriber's score in [0,1].
	Confidence float64 `json:"confidence"`
	// Y is the normalized vertical position of the line, 0 at the top.
	Y float64 `json:"y"`
}

// SortFragments orders fragments top to bottom by vertical position.
// Classification and extraction both expect this order.
func SortFragments(fragments []Fragment) {
	sort.SliceStable(fragments, func(i, j int) bool {
		return fragments[i].Y < fragments[j].Y
	})
}

// JoinFragments concatenates fragment text in top-to-bottom order,
// one line per fragment.
func JoinFragments(fragments []Fragment) string {
	sorted := make([]Fragment, len(fragments))
	copy(sorted, fragments)
	SortFragments(sorted)

	lines := make([]string, 0, len(sorted))
	for _, f := range sorted {
		if t := strings.TrimSpace(f.Text); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n")
}

// SongInfo is the extracted metadata for a music screenshot.
type SongInfo struct {
	Title      string  `json:"title"`
	Artist     string  `json:"artist,omitempty"`
	Confidence float64 `json:"confidence"`
}

// MovieInfo is the extracted metadata for a movie screenshot.
type MovieInfo struct {
	Title    string `json:"title"`
	Year     int    `json:"year,omitempty"`
	Director string `json:"director,omitempty"`
	// Confidence is the extractor's score in [0,1].
	Confidence float64 `json:"confidence"`
}

// BookInfo is the extracted metadata for a book screenshot.
type BookInfo struct {
	Title      string  `json:"title"`
	Author     string  `json:"author,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ResultRecord is the durable outcome of processing one screenshot.
// Records are immutable once created; the ID is minted exactly once and
// preserved across every save/load cycle.
type ResultRecord struct {
	ID           string      `json:"id"`
	ScreenshotID string      `json:"screenshot_id"`
	Status       Status      `json:"status"`
	ContentType  ContentType `json:"content_type"`
	Title        string      `json:"title,omitempty"`
	Creator      string      `json:"creator,omitempty"`
	Message      string      `json:"message"`
	Link         string      `json:"link,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// NewResultRecord mints a record for one processed screenshot.
func NewResultRecord(screenshotID string, status Status, contentType ContentType, message string) ResultRecord {
	return ResultRecord{
		ID:           uuid.New().String(),
		ScreenshotID: screenshotID,
		Status:       status,
		ContentType:  contentType,
		Message:      message,
		CreatedAt:    time.Now().UTC(),
	}
}

// Summary renders a one-line description of the record for logs and lists.
func (r ResultRecord) Summary() string {
	if r.Title == "" {
		return fmt.Sprintf("[%s] %s: %s", r.Status, r.ContentType, r.Message)
	}
	if r.Creator == "" {
		return fmt.Sprintf("[%s] %s: %q (%s)", r.Status, r.ContentType, r.Title, r.Message)
	}
	return fmt.Sprintf("[%s] %s: %q by %s (%s)", r.Status, r.ContentType, r.Title, r.Creator, r.Message)
}
