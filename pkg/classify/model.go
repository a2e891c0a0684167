package classify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mitgor/screensort/pkg/llm"
	"github.com/mitgor/screensort/pkg/screenshot"
)

// Model asks the configured model for a label and falls through to the
// keyword classifier on any error, unparseable reply, or an unknown
// verdict. Selected at construction when model credentials resolve.
type Model struct {
	call     llm.Caller
	fallback Keyword
	log      *slog.Logger
}

var _ Classifier = (*Model)(nil)

// NewModel creates a model-backed classifier wrapping the keyword
// fallback.
func NewModel(call llm.Caller, log *slog.Logger) *Model {
	return &Model{
		call:     call,
		fallback: NewKeyword(),
		log:      log,
	}
}

type labelResponse struct {
	ContentType string `json:"content_type"`
}

// Classify prompts the model for one of the five labels. Anything but a
// confident recognized label defers to the keyword tables.
func (m *Model) Classify(ctx context.Context, fragments []screenshot.Fragment) screenshot.ContentType {
	text := screenshot.JoinFragments(fragments)
	if text == "" {
		return screenshot.ContentTypeUnknown
	}

	response, err := m.call(ctx, buildLabelPrompt(text))
	if err != nil {
		m.log.Debug("model classification failed, using keywords", "error", err)
		return m.fallback.Classify(ctx, fragments)
	}

	label, err := parseLabelResponse(response)
	if err != nil {
		m.log.Debug("model reply unparseable, using keywords", "error", err)
		return m.fallback.Classify(ctx, fragments)
	}

	if label == screenshot.ContentTypeUnknown {
		// The model punted; the keyword tables get a chance.
		return m.fallback.Classify(ctx, fragments)
	}

	return label
}

func buildLabelPrompt(text string) string {
	return "Classify this screenshot text as exactly one content type.\n" +
		"Return ONLY valid JSON with this field:\n\n" +
		"{\n  \"content_type\": \"one of: music, movie, book, meme, unknown\"\n}\n\n" +
		"Screenshot text:\n" + text
}

func parseLabelResponse(response string) (screenshot.ContentType, error) {
	// Extract JSON from the response (may be wrapped in markdown code blocks)
	jsonStr := response
	if idx := strings.Index(response, "{"); idx >= 0 {
		endIdx := strings.LastIndex(response, "}")
		if endIdx > idx {
			jsonStr = response[idx : endIdx+1]
		}
	}

	var label labelResponse
	if err := json.Unmarshal([]byte(jsonStr), &label); err != nil {
		return screenshot.ContentTypeUnknown, err
	}

	return screenshot.ParseContentType(label.ContentType), nil
}
