package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitgor/screensort/pkg/classify"
	"github.com/mitgor/screensort/pkg/llm"
	"github.com/mitgor/screensort/pkg/screenshot"
)

const bookMinTitle = 3

// Book extracts book metadata from fragments classified as book.
type Book struct {
	classifier classify.Classifier
	call       llm.Caller
	settings
}

// NewBook creates a book extractor.
func NewBook(classifier classify.Classifier, call llm.Caller, opts ...Option) *Book {
	return &Book{
		classifier: classifier,
		call:       call,
		settings:   newSettings(opts),
	}
}

type bookReply struct {
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Confidence float64 `json:"confidence"`
}

// Extract produces validated book info or one of the extraction
// sentinels. Rate-limited and safety-refused model calls degrade to the
// deterministic fallback; other model failures are terminal.
func (e *Book) Extract(ctx context.Context, fragments []screenshot.Fragment) (screenshot.BookInfo, error) {
	if e.classifier.Classify(ctx, fragments) != screenshot.ContentTypeBook {
		return screenshot.BookInfo{}, ErrWrongType
	}

	lines := cleanLines(fragments)
	if len(lines) == 0 {
		return screenshot.BookInfo{}, ErrNoTitle
	}

	response, fallback, err := callModel(ctx, e.call, buildBookPrompt(lines), e.log)
	if err != nil {
		return screenshot.BookInfo{}, fmt.Errorf("book extraction: %w", err)
	}

	var info screenshot.BookInfo
	ok := false
	if !fallback {
		info, ok = e.validateReply(response)
	}
	if !ok {
		info, ok = e.fromLines(lines)
		if !ok {
			return screenshot.BookInfo{}, ErrNoTitle
		}
	}

	if info.Confidence < e.threshold {
		return screenshot.BookInfo{}, fmt.Errorf("%w: %.2f < %.2f", ErrLowConfidence, info.Confidence, e.threshold)
	}

	return info, nil
}

func (e *Book) validateReply(response string) (screenshot.BookInfo, bool) {
	var reply bookReply
	if err := parseReply(response, &reply); err != nil {
		e.log.Debug("book reply unparseable", "error", err)
		return screenshot.BookInfo{}, false
	}

	reply.Title = strings.TrimSpace(reply.Title)
	reply.Author = strings.TrimSpace(reply.Author)

	if containsPlaceholder(reply.Title, reply.Author) {
		return screenshot.BookInfo{}, false
	}
	if !substantial(reply.Title, bookMinTitle) {
		return screenshot.BookInfo{}, false
	}
	if reply.Confidence < 0 || reply.Confidence > 1 {
		return screenshot.BookInfo{}, false
	}

	return screenshot.BookInfo{
		Title:      reply.Title,
		Author:     reply.Author,
		Confidence: reply.Confidence,
	}, true
}

// fromLines is the deterministic fallback: first substantial line is the
// title, fixed moderate confidence.
func (e *Book) fromLines(lines []string) (screenshot.BookInfo, bool) {
	title := firstSubstantialLine(lines, bookMinTitle)
	if title == "" {
		return screenshot.BookInfo{}, false
	}

	return screenshot.BookInfo{
		Title:      title,
		Confidence: FallbackConfidence,
	}, true
}

func buildBookPrompt(lines []string) string {
	return "Extract the book shown in this screenshot text.\n" +
		"Return ONLY valid JSON with these fields:\n\n" +
		"{\n" +
		"  \"title\": \"the book title\",\n" +
		"  \"author\": \"the author, empty string if not shown\",\n" +
		"  \"confidence\": 0.0 to 1.0\n" +
		"}\n\n" +
		"Screenshot text:\n" + strings.Join(lines, "\n")
}
