package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/mitgor/screensort/pkg/screenshot"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeResultRecorded is emitted after one screenshot's outcome
	// is recorded.
	EventTypeResultRecorded = "screensort.result.recorded"

	// EventTypeBatchCompleted is emitted once per batch, whatever the
	// terminal outcome.
	EventTypeBatchCompleted = "screensort.batch.completed"
)

// EventSource identifies the installation that emitted an event.
type EventSource struct {
	Library string `json:"library,omitempty"`
	Host    string `json:"host,omitempty"`
	Version string `json:"version,omitempty"`
}

// ResultRecordedEvent is a transport-neutral payload for one recorded
// screenshot outcome.
type ResultRecordedEvent struct {
	SchemaVersion int                     `json:"schema_version"`
	EventType     string                  `json:"event_type"`
	EventID       string                  `json:"event_id"`
	EmittedAt     time.Time               `json:"emitted_at"`
	Source        EventSource             `json:"source"`
	Result        screenshot.ResultRecord `json:"result"`
}

// BatchSummary counts a batch's items by outcome.
type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Flagged   int `json:"flagged"`
	Failed    int `json:"failed"`
}

// BatchCompletedEvent is a transport-neutral payload for a finished
// batch. Outcome is one of "completed", "cancelled", or "nothing-to-do".
type BatchCompletedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Source        EventSource  `json:"source"`
	Outcome       string       `json:"outcome"`
	Summary       BatchSummary `json:"summary"`
	DurationMs    int64        `json:"duration_ms"`
}

// NewResultEvent stamps a result record into a publishable event.
func NewResultEvent(source EventSource, record screenshot.ResultRecord) *ResultRecordedEvent {
	return &ResultRecordedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeResultRecorded,
		EventID:       uuid.New().String(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Result:        record,
	}
}

// NewBatchEvent stamps a batch outcome into a publishable event.
func NewBatchEvent(source EventSource, outcome string, summary BatchSummary, duration time.Duration) *BatchCompletedEvent {
	return &BatchCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeBatchCompleted,
		EventID:       uuid.New().String(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Outcome:       outcome,
		Summary:       summary,
		DurationMs:    duration.Milliseconds(),
	}
}
