// Package cliui holds the terminal presentation helpers shared by the
// screensort commands: step spinners, status marks, duration formatting,
// and markdown rendering.
package cliui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a mark and the elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	var mu sync.Mutex

	line := func(mark string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "\r  %s %s", mark, msg)
	}

	go func() {
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			line(spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]))
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	start := time.Now()
	err := fn()
	close(done)

	mu.Lock()
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render("("+FormatDuration(time.Since(start))+")"),
	)
	mu.Unlock()

	return err
}

// Mark renders err as a ✓ or ✗.
func Mark(err error) string {
	if err == nil {
		return SuccessMark
	}
	return FailMark
}

// StatusMark maps a processing status string to its display mark:
// ✓ for success, ⚑ for flagged, ✗ for anything else.
func StatusMark(status string) string {
	switch status {
	case "success":
		return SuccessMark
	case "flagged":
		return FlagMark
	default:
		return FailMark
	}
}

// FormatDuration formats a duration for display, e.g. "12ms", "3.2s",
// or "2m05s" for the long batches.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

// RenderMarkdown renders markdown for terminal display using glamour.
// On error it returns the raw content so callers can print it as-is.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return rendered, nil
}
