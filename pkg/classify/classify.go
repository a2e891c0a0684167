// Package classify decides what kind of content a screenshot shows. The
// model classifier asks the configured model first and falls back to the
// deterministic keyword classifier; the keyword classifier alone works
// without any model at all.
package classify

import (
	"context"
	"strings"

	"github.com/mitgor/screensort/pkg/screenshot"
	"github.com/mitgor/screensort/pkg/vision"
)

// Classifier labels fragments with a content type. Classification is
// total: it never errors, unknown is the floor.
type Classifier interface {
	Classify(ctx context.Context, fragments []screenshot.Fragment) screenshot.ContentType
}

// keywordTables maps each content type to the platform chrome and genre
// markers that identify it in transcribed text.
var keywordTables = map[screenshot.ContentType][]string{
	screenshot.ContentTypeMusic: {
		"spotify", "apple music", "soundcloud", "shazam", "bandcamp",
		"now playing", "add to playlist", "playlist", "lyrics",
		"album", "single", "remix", "feat.", "ft.", "tracklist",
	},
	screenshot.ContentTypeMovie: {
		"imdb", "netflix", "letterboxd", "rotten tomatoes", "hbo",
		"directed by", "director", "trailer", "now showing", "in theaters",
		"runtime", "screenplay", "box office", "film", "movie", "episode", "season",
	},
	screenshot.ContentTypeBook: {
		"goodreads", "kindle", "audible", "libby", "storygraph",
		"author", "paperback", "hardcover", "isbn", "want to read",
		"currently reading", "chapters", "pages", "novel", "memoir",
	},
	screenshot.ContentTypeMeme: {
		"reddit", "r/", "u/", "9gag", "imgflip", "knowyourmeme",
		"upvote", "retweet", "likes", "comments", "share",
		"lol", "lmao", "bruh", "meme", "caption this",
	},
}

// tableOrder fixes tie-breaking so classification is deterministic.
var tableOrder = []screenshot.ContentType{
	screenshot.ContentTypeMusic,
	screenshot.ContentTypeMovie,
	screenshot.ContentTypeBook,
	screenshot.ContentTypeMeme,
}

// Keyword classifies by counting keyword hits per type over the joined
// lowercase fragment text. No hits means unknown.
type Keyword struct{}

var _ Classifier = Keyword{}

// NewKeyword creates the deterministic keyword classifier.
func NewKeyword() Keyword {
	return Keyword{}
}

// Classify counts keyword hits per content type and returns the best
// scoring one, with ties broken in a fixed order.
func (Keyword) Classify(_ context.Context, fragments []screenshot.Fragment) screenshot.ContentType {
	text := strings.ToLower(screenshot.JoinFragments(fragments))
	if text == "" {
		return screenshot.ContentTypeUnknown
	}

	best := screenshot.ContentTypeUnknown
	bestScore := 0

	for _, t := range tableOrder {
		score := 0
		for _, kw := range keywordTables[t] {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			best = t
			bestScore = score
		}
	}

	return best
}

// IsMeme reports whether fragments classify as a meme.
func IsMeme(ctx context.Context, c Classifier, fragments []screenshot.Fragment) bool {
	return c.Classify(ctx, fragments) == screenshot.ContentTypeMeme
}

// IsMemeScreenshot transcribes a screenshot first, then classifies the
// fragments.
func IsMemeScreenshot(ctx context.Context, t vision.Transcriber, c Classifier, shot screenshot.Screenshot) (bool, error) {
	fragments, err := t.Transcribe(ctx, shot)
	if err != nil {
		return false, err
	}

	return IsMeme(ctx, c, fragments), nil
}
