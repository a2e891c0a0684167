package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitgor/screensort/pkg/classify"
	"github.com/mitgor/screensort/pkg/llm"
	"github.com/mitgor/screensort/pkg/screenshot"
)

// musicMinTitle allows two-rune song titles since artist context is
// often absent.
const musicMinTitle = 2

// Music extracts song metadata from fragments classified as music.
type Music struct {
	classifier classify.Classifier
	call       llm.Caller
	settings
}

// NewMusic creates a music extractor.
func NewMusic(classifier classify.Classifier, call llm.Caller, opts ...Option) *Music {
	return &Music{
		classifier: classifier,
		call:       call,
		settings:   newSettings(opts),
	}
}

type songReply struct {
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Confidence float64 `json:"confidence"`
}

// Extract produces validated song info or one of the extraction
// sentinels. Rate-limited and safety-refused model calls degrade to the
// deterministic fallback; other model failures are terminal.
func (e *Music) Extract(ctx context.Context, fragments []screenshot.Fragment) (screenshot.SongInfo, error) {
	if e.classifier.Classify(ctx, fragments) != screenshot.ContentTypeMusic {
		return screenshot.SongInfo{}, ErrWrongType
	}

	lines := cleanLines(fragments)
	if len(lines) == 0 {
		return screenshot.SongInfo{}, ErrNoTitle
	}

	response, fallback, err := callModel(ctx, e.call, buildSongPrompt(lines), e.log)
	if err != nil {
		return screenshot.SongInfo{}, fmt.Errorf("music extraction: %w", err)
	}

	var info screenshot.SongInfo
	ok := false
	if !fallback {
		info, ok = e.validateReply(response)
	}
	if !ok {
		info, ok = e.fromLines(lines)
		if !ok {
			return screenshot.SongInfo{}, ErrNoTitle
		}
	}

	if info.Confidence < e.threshold {
		return screenshot.SongInfo{}, fmt.Errorf("%w: %.2f < %.2f", ErrLowConfidence, info.Confidence, e.threshold)
	}

	return info, nil
}

// validateReply parses and validates the model reply. ok is false
// whenever the deterministic fallback should take over.
func (e *Music) validateReply(response string) (screenshot.SongInfo, bool) {
	var reply songReply
	if err := parseReply(response, &reply); err != nil {
		e.log.Debug("music reply unparseable", "error", err)
		return screenshot.SongInfo{}, false
	}

	reply.Title = strings.TrimSpace(reply.Title)
	reply.Artist = strings.TrimSpace(reply.Artist)

	if containsPlaceholder(reply.Title, reply.Artist) {
		return screenshot.SongInfo{}, false
	}
	if !substantial(reply.Title, musicMinTitle) {
		return screenshot.SongInfo{}, false
	}
	if reply.Confidence < 0 || reply.Confidence > 1 {
		return screenshot.SongInfo{}, false
	}

	return screenshot.SongInfo{
		Title:      reply.Title,
		Artist:     reply.Artist,
		Confidence: reply.Confidence,
	}, true
}

// fromLines is the deterministic fallback: first substantial line is the
// title, fixed moderate confidence.
func (e *Music) fromLines(lines []string) (screenshot.SongInfo, bool) {
	title := firstSubstantialLine(lines, musicMinTitle)
	if title == "" {
		return screenshot.SongInfo{}, false
	}

	return screenshot.SongInfo{
		Title:      title,
		Confidence: FallbackConfidence,
	}, true
}

func buildSongPrompt(lines []string) string {
	return "Extract the song shown in this screenshot text.\n" +
		"Return ONLY valid JSON with these fields:\n\n" +
		"{\n" +
		"  \"title\": \"the song title\",\n" +
		"  \"artist\": \"the performing artist, empty string if not shown\",\n" +
		"  \"confidence\": 0.0 to 1.0\n" +
		"}\n\n" +
		"Screenshot text:\n" + strings.Join(lines, "\n")
}
