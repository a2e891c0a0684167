// Package vision turns screenshots into ranked text fragments via an OCR
// service.
package vision

import (
	"context"

	"github.com/mitgor/screensort/pkg/screenshot"
)

// Transcriber extracts text fragments from a screenshot. Fragments come
// back sorted top to bottom.
type Transcriber interface {
	Transcribe(ctx context.Context, shot screenshot.Screenshot) ([]screenshot.Fragment, error)
}

// TranscribeFunc adapts a function to the Transcriber interface.
type TranscribeFunc func(ctx context.Context, shot screenshot.Screenshot) ([]screenshot.Fragment, error)

func (f TranscribeFunc) Transcribe(ctx context.Context, shot screenshot.Screenshot) ([]screenshot.Fragment, error) {
	return f(ctx, shot)
}
