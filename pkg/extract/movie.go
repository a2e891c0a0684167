package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitgor/screensort/pkg/classify"
	"github.com/mitgor/screensort/pkg/llm"
	"github.com/mitgor/screensort/pkg/screenshot"
)

const movieMinTitle = 3

// Movie extracts film metadata from fragments classified as movie.
type Movie struct {
	classifier classify.Classifier
	call       llm.Caller
	settings
}

// NewMovie creates a movie extractor.
func NewMovie(classifier classify.Classifier, call llm.Caller, opts ...Option) *Movie {
	return &Movie{
		classifier: classifier,
		call:       call,
		settings:   newSettings(opts),
	}
}

type movieReply struct {
	Title      string  `json:"title"`
	Year       int     `json:"year"`
	Director   string  `json:"director"`
	Confidence float64 `json:"confidence"`
}

// Extract produces validated movie info or one of the extraction
// sentinels. Rate-limited and safety-refused model calls degrade to the
// deterministic fallback; other model failures are terminal.
func (e *Movie) Extract(ctx context.Context, fragments []screenshot.Fragment) (screenshot.MovieInfo, error) {
	if e.classifier.Classify(ctx, fragments) != screenshot.ContentTypeMovie {
		return screenshot.MovieInfo{}, ErrWrongType
	}

	lines := cleanLines(fragments)
	if len(lines) == 0 {
		return screenshot.MovieInfo{}, ErrNoTitle
	}

	response, fallback, err := callModel(ctx, e.call, buildMoviePrompt(lines), e.log)
	if err != nil {
		return screenshot.MovieInfo{}, fmt.Errorf("movie extraction: %w", err)
	}

	var info screenshot.MovieInfo
	ok := false
	if !fallback {
		info, ok = e.validateReply(response)
	}
	if !ok {
		info, ok = e.fromLines(lines)
		if !ok {
			return screenshot.MovieInfo{}, ErrNoTitle
		}
	}

	if info.Confidence < e.threshold {
		return screenshot.MovieInfo{}, fmt.Errorf("%w: %.2f < %.2f", ErrLowConfidence, info.Confidence, e.threshold)
	}

	return info, nil
}

func (e *Movie) validateReply(response string) (screenshot.MovieInfo, bool) {
	var reply movieReply
	if err := parseReply(response, &reply); err != nil {
		e.log.Debug("movie reply unparseable", "error", err)
		return screenshot.MovieInfo{}, false
	}

	reply.Title = strings.TrimSpace(reply.Title)
	reply.Director = strings.TrimSpace(reply.Director)

	if containsPlaceholder(reply.Title, reply.Director) {
		return screenshot.MovieInfo{}, false
	}
	if !substantial(reply.Title, movieMinTitle) {
		return screenshot.MovieInfo{}, false
	}
	if reply.Confidence < 0 || reply.Confidence > 1 {
		return screenshot.MovieInfo{}, false
	}

	return screenshot.MovieInfo{
		Title:      reply.Title,
		Year:       reply.Year,
		Director:   reply.Director,
		Confidence: reply.Confidence,
	}, true
}

// fromLines is the deterministic fallback: first substantial line is the
// title, plus a 19xx/20xx year scan.
func (e *Movie) fromLines(lines []string) (screenshot.MovieInfo, bool) {
	title := firstSubstantialLine(lines, movieMinTitle)
	if title == "" {
		return screenshot.MovieInfo{}, false
	}

	return screenshot.MovieInfo{
		Title:      title,
		Year:       findYear(lines),
		Confidence: FallbackConfidence,
	}, true
}

func buildMoviePrompt(lines []string) string {
	return "Extract the movie shown in this screenshot text.\n" +
		"Return ONLY valid JSON with these fields:\n\n" +
		"{\n" +
		"  \"title\": \"the movie title\",\n" +
		"  \"year\": 0,\n" +
		"  \"director\": \"the director, empty string if not shown\",\n" +
		"  \"confidence\": 0.0 to 1.0\n" +
		"}\n\n" +
		"Screenshot text:\n" + strings.Join(lines, "\n")
}
