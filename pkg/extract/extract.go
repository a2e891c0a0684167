// Package extract turns classified fragments into validated structured
// metadata, one extractor per content type. The model does the heavy
// lifting; replies that fail validation fall back to deterministic
// pattern extraction, and everything passes a final confidence gate.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitgor/screensort/pkg/llm"
	"github.com/mitgor/screensort/pkg/logger"
	"github.com/mitgor/screensort/pkg/screenshot"
)

var (
	// ErrWrongType means the fragments do not classify as the
	// extractor's content type.
	ErrWrongType = errors.New("fragments are not this content type")

	// ErrNoTitle means no usable title could be produced.
	ErrNoTitle = errors.New("no usable title found")

	// ErrLowConfidence means the extracted confidence fell below the
	// configured threshold.
	ErrLowConfidence = errors.New("extraction confidence below threshold")
)

// DefaultThreshold is the per-type confidence gate. The deterministic
// fallback assigns exactly this value, so fallback results pass the gate
// unless the threshold is raised.
const DefaultThreshold = 0.6

// FallbackConfidence is assigned to deterministic fallback results.
const FallbackConfidence = 0.6

// placeholderTokens reject a model reply when any field contains one,
// case-insensitive.
var placeholderTokens = []string{"unknown", "n/a", "placeholder", "not found"}

// noiseLines are platform chrome that never carries metadata. A fragment
// is dropped when its trimmed lowercase text equals one of these.
var noiseLines = map[string]bool{
	"play": true, "pause": true, "shuffle": true, "repeat": true,
	"continue watching": true, "now playing": true, "up next": true,
	"add to playlist": true, "add to library": true, "want to read": true,
	"currently reading": true, "subscribe": true, "share": true,
	"like": true, "follow": true, "download": true, "trailer": true,
	"spotify": true, "apple music": true, "soundcloud": true, "shazam": true,
	"netflix": true, "hulu": true, "youtube": true, "prime video": true,
	"imdb": true, "letterboxd": true, "goodreads": true, "kindle": true,
	"audible": true,
}

// timestampLine matches pure playback or progress chrome like "1:23",
// "12:34 / 45:02", or "87%".
var timestampLine = regexp.MustCompile(`^[\d:.\s/%-]+$`)

var yearToken = regexp.MustCompile(`\b(19|20)\d{2}\b`)

type settings struct {
	threshold float64
	log       *slog.Logger
}

// Option configures an extractor.
type Option func(*settings)

// WithThreshold overrides the confidence gate.
func WithThreshold(t float64) Option {
	return func(s *settings) {
		s.threshold = t
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *settings) {
		s.log = log
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		threshold: DefaultThreshold,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// cleanLines sorts fragments top to bottom and drops chrome lines,
// returning the surviving lines in order.
func cleanLines(fragments []screenshot.Fragment) []string {
	sorted := make([]screenshot.Fragment, len(fragments))
	copy(sorted, fragments)
	screenshot.SortFragments(sorted)

	lines := make([]string, 0, len(sorted))
	for _, f := range sorted {
		line := strings.TrimSpace(f.Text)
		if line == "" {
			continue
		}
		if noiseLines[strings.ToLower(line)] {
			continue
		}
		if timestampLine.MatchString(line) {
			continue
		}
		lines = append(lines, line)
	}

	return lines
}

// substantial reports whether a line could plausibly be a title: long
// enough and containing at least one letter.
func substantial(line string, minLen int) bool {
	if len([]rune(line)) < minLen {
		return false
	}
	for _, r := range line {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r > 127 {
			return true
		}
	}
	return false
}

// firstSubstantialLine returns the fallback title candidate.
func firstSubstantialLine(lines []string, minLen int) string {
	for _, line := range lines {
		if substantial(line, minLen) {
			return line
		}
	}
	return ""
}

// findYear scans lines for a 19xx/20xx token.
func findYear(lines []string) int {
	for _, line := range lines {
		if match := yearToken.FindString(line); match != "" {
			year, err := strconv.Atoi(match)
			if err == nil {
				return year
			}
		}
	}
	return 0
}

// containsPlaceholder reports whether any field carries a placeholder
// token, case-insensitive substring match.
func containsPlaceholder(fields ...string) bool {
	for _, field := range fields {
		lower := strings.ToLower(field)
		for _, token := range placeholderTokens {
			if strings.Contains(lower, token) {
				return true
			}
		}
	}
	return false
}

// shouldFallBack reports whether a model failure is one the deterministic
// extractor absorbs: rate limiting and safety refusals, tagged by pkg/llm.
func shouldFallBack(err error) bool {
	var modelErr *llm.ModelError
	if errors.As(err, &modelErr) {
		return modelErr.Kind == llm.KindRateLimited || modelErr.Kind == llm.KindSafetyRejected
	}
	return false
}

// parseReply extracts the first JSON object from a model reply into out.
func parseReply(response string, out any) error {
	jsonStr := response
	if idx := strings.Index(response, "{"); idx >= 0 {
		endIdx := strings.LastIndex(response, "}")
		if endIdx > idx {
			jsonStr = response[idx : endIdx+1]
		}
	}

	return json.Unmarshal([]byte(jsonStr), out)
}

// callModel runs the prompt and reports the reply, whether to fall back,
// and any terminal error. A nil caller means no model is configured and
// always falls back.
func callModel(ctx context.Context, call llm.Caller, prompt string, log *slog.Logger) (string, bool, error) {
	if call == nil {
		return "", true, nil
	}

	response, err := call(ctx, prompt)
	if err != nil {
		if shouldFallBack(err) {
			log.Debug("model unavailable for extraction, using fallback", "error", err)
			return "", true, nil
		}
		return "", false, err
	}
	return response, false, nil
}
