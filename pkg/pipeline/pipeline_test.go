package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mitgor/screensort/pkg/cache"
	"github.com/mitgor/screensort/pkg/cache/inmemory"
	"github.com/mitgor/screensort/pkg/classify"
	"github.com/mitgor/screensort/pkg/enrich"
	"github.com/mitgor/screensort/pkg/eventstream"
	"github.com/mitgor/screensort/pkg/extract"
	"github.com/mitgor/screensort/pkg/journal"
	libmemory "github.com/mitgor/screensort/pkg/library/memory"
	"github.com/mitgor/screensort/pkg/llm"
	"github.com/mitgor/screensort/pkg/pipeline"
	"github.com/mitgor/screensort/pkg/screenshot"
	"github.com/mitgor/screensort/pkg/vision"
)

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu      sync.Mutex
	results []*eventstream.ResultRecordedEvent
	batches []*eventstream.BatchCompletedEvent
}

func (c *capturePublisher) PublishResult(_ context.Context, event *eventstream.ResultRecordedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, event)
	return nil
}

func (c *capturePublisher) PublishBatch(_ context.Context, event *eventstream.BatchCompletedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, event)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func frags(texts ...string) []screenshot.Fragment {
	fragments := make([]screenshot.Fragment, len(texts))
	for i, text := range texts {
		fragments[i] = screenshot.Fragment{Text: text, Confidence: 0.9, Y: float64(i) * 20}
	}
	return fragments
}

func shot(id string) screenshot.Screenshot {
	return screenshot.Screenshot{ID: id}
}

// mapTranscriber serves canned fragments per screenshot id and fails for
// the listed ids.
func mapTranscriber(fragments map[string][]screenshot.Fragment, failIDs ...string) vision.TranscribeFunc {
	fail := make(map[string]bool, len(failIDs))
	for _, id := range failIDs {
		fail[id] = true
	}
	return func(_ context.Context, s screenshot.Screenshot) ([]screenshot.Fragment, error) {
		if fail[s.ID] {
			return nil, errors.New("ocr service offline")
		}
		return fragments[s.ID], nil
	}
}

// cannedCaller answers extraction prompts by recognizing the title line.
func cannedCaller() llm.Caller {
	return func(_ context.Context, prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Blinding Lights"):
			return `{"title": "Blinding Lights", "artist": "The Weeknd", "confidence": 0.9}`, nil
		case strings.Contains(prompt, "The Godfather"):
			return `{"title": "The Godfather", "year": 1972, "director": "Francis Ford Coppola", "confidence": 0.92}`, nil
		case strings.Contains(prompt, "Dune"):
			return `{"title": "Dune", "author": "Frank Herbert", "confidence": 0.91}`, nil
		case strings.Contains(prompt, "Low Signal Song"):
			return `{"title": "Low Signal Song", "confidence": 0.3}`, nil
		}
		return `{"title": "unknown", "confidence": 0}`, nil
	}
}

var (
	musicFrags   = frags("Now Playing", "Blinding Lights", "The Weeknd", "Spotify")
	movieFrags   = frags("Now Showing", "The Godfather", "Directed by Francis Ford Coppola")
	bookFrags    = frags("Want to Read", "Dune", "Frank Herbert", "Goodreads")
	memeFrags    = frags("r/ProgrammerHumor", "LMAO", "caption this")
	unknownFrags = frags("grocery list", "eggs and milk")
	lowFrags     = frags("Now Playing", "Low Signal Song", "Spotify")
)

type fixture struct {
	lib      *libmemory.Library
	store    cache.Store
	searcher *enrich.MemorySearcher
	playlist *enrich.MemoryPlaylist
	journal  *journal.MemoryAppender
	events   *capturePublisher
	cfg      pipeline.Config
}

func newFixture(fragments map[string][]screenshot.Fragment, failIDs ...string) *fixture {
	classifier := classify.NewKeyword()
	call := cannedCaller()

	f := &fixture{
		lib:      libmemory.NewLibrary(),
		store:    inmemory.NewStore(),
		searcher: enrich.NewMemorySearcher(),
		playlist: enrich.NewMemoryPlaylist(),
		journal:  journal.NewMemoryAppender(),
		events:   &capturePublisher{},
	}

	f.searcher.Put("Blinding Lights", enrich.Match{Title: "Blinding Lights", Creator: "The Weeknd", Link: "https://music.example/v/1"})
	f.searcher.Put("The Godfather", enrich.Match{Title: "The Godfather", Link: "https://movies.example/238"})
	f.searcher.Put("Dune", enrich.Match{Title: "Dune", Creator: "Frank Herbert", Link: "https://books.example/dune"})

	f.cfg = pipeline.Config{
		Library:     f.lib,
		Transcriber: mapTranscriber(fragments, failIDs...),
		Classifier:  classifier,
		Music:       extract.NewMusic(classifier, call),
		Movie:       extract.NewMovie(classifier, call),
		Book:        extract.NewBook(classifier, call),
		Cache:       f.store,
		Videos:      f.searcher,
		Movies:      f.searcher,
		Books:       f.searcher,
		Playlist:    f.playlist,
		Journal:     f.journal,
		Events:      f.events,
	}

	return f
}

func (f *fixture) run(ctx context.Context) (pipeline.Summary, error) {
	p, err := pipeline.New(f.cfg)
	Expect(err).NotTo(HaveOccurred())
	return p.Run(ctx)
}

var _ = Describe("Processor", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("a mixed batch", func() {
		var f *fixture

		BeforeEach(func() {
			f = newFixture(map[string][]screenshot.Fragment{
				"song":  musicFrags,
				"film":  movieFrags,
				"novel": bookFrags,
				"joke":  memeFrags,
				"list":  unknownFrags,
			})
			for _, id := range []string{"song", "film", "novel", "joke", "list"} {
				f.lib.Add(shot(id))
			}
		})

		It("sorts every recognized item and flags the rest", func() {
			summary, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.Outcome).To(Equal(pipeline.OutcomeCompleted))
			Expect(summary.Total).To(Equal(5))
			Expect(summary.Succeeded).To(Equal(4))
			Expect(summary.Flagged).To(Equal(1))
			Expect(summary.Failed).To(BeZero())

			moved, ok := f.lib.MovedTo("song")
			Expect(ok).To(BeTrue())
			Expect(moved).To(Equal(screenshot.ContentTypeMusic))

			moved, ok = f.lib.MovedTo("film")
			Expect(ok).To(BeTrue())
			Expect(moved).To(Equal(screenshot.ContentTypeMovie))

			moved, ok = f.lib.MovedTo("novel")
			Expect(ok).To(BeTrue())
			Expect(moved).To(Equal(screenshot.ContentTypeBook))

			moved, ok = f.lib.MovedTo("joke")
			Expect(ok).To(BeTrue())
			Expect(moved).To(Equal(screenshot.ContentTypeMeme))

			_, ok = f.lib.MovedTo("list")
			Expect(ok).To(BeFalse())
		})

		It("fills in extracted metadata and the video link", func() {
			summary, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			song := summary.Results[0]
			Expect(song.ScreenshotID).To(Equal("song"))
			Expect(song.Title).To(Equal("Blinding Lights"))
			Expect(song.Creator).To(Equal("The Weeknd"))
			Expect(song.Link).To(Equal("https://music.example/v/1"))
		})

		It("collects song links into one shared playlist", func() {
			_, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(f.playlist.GetOrCreateCalls).To(Equal(1))

			id, err := f.playlist.GetOrCreate(ctx, pipeline.DefaultPlaylistName)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.playlist.Links(id)).To(Equal([]string{"https://music.example/v/1"}))
		})

		It("journals every sorted media item", func() {
			_, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			entries := f.journal.Entries()
			Expect(entries).To(HaveLen(3))
			Expect(entries[0].Title).To(Equal("Blinding Lights"))
			Expect(entries[1].Title).To(Equal("The Godfather"))
			Expect(entries[2].Title).To(Equal("Dune"))
		})

		It("creates all destinations before moving anything", func() {
			_, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			for _, contentType := range screenshot.DestinationTypes() {
				Expect(f.lib.HasDestination(contentType)).To(BeTrue(), string(contentType))
			}
		})

		It("marks everything processed and saves results in order", func() {
			_, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			processed, err := f.store.LoadProcessedSet(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(processed).To(HaveLen(5))

			records, err := f.store.LoadResults(ctx)
			Expect(err).NotTo(HaveOccurred())
			ids := make([]string, len(records))
			for i, record := range records {
				ids[i] = record.ScreenshotID
			}
			Expect(ids).To(Equal([]string{"song", "film", "novel", "joke", "list"}))
		})

		It("annotates items with the outcome and the resume marker", func() {
			_, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			note, ok := f.lib.Note("song")
			Expect(ok).To(BeTrue())
			Expect(note).To(ContainSubstring("sorted by screensort"))
			Expect(note).To(ContainSubstring("Blinding Lights"))

			note, ok = f.lib.Note("list")
			Expect(ok).To(BeTrue())
			Expect(note).To(ContainSubstring("sorted by screensort"))
		})

		It("reports progress one-based before each item", func() {
			var progress [][2]int
			f.cfg.OnProgress = func(done, total int) {
				progress = append(progress, [2]int{done, total})
			}

			_, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(progress).To(Equal([][2]int{{1, 5}, {2, 5}, {3, 5}, {4, 5}, {5, 5}}))
		})

		It("publishes one result event per item and one batch event", func() {
			_, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(f.events.results).To(HaveLen(5))
			Expect(f.events.batches).To(HaveLen(1))
			Expect(f.events.batches[0].Outcome).To(Equal("completed"))
			Expect(f.events.batches[0].Summary.Succeeded).To(Equal(4))
		})
	})

	Describe("outcome accounting", func() {
		It("marks every item processed whatever its outcome", func() {
			f := newFixture(map[string][]screenshot.Fragment{
				"good": musicFrags,
				"weak": lowFrags,
			}, "broken")
			f.lib.Add(shot("good"))
			f.lib.Add(shot("weak"))
			f.lib.Add(shot("broken"))

			summary, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.Succeeded).To(Equal(1))
			Expect(summary.Flagged).To(Equal(1))
			Expect(summary.Failed).To(Equal(1))

			statuses := make([]screenshot.Status, len(summary.Results))
			for i, record := range summary.Results {
				statuses[i] = record.Status
			}
			Expect(statuses).To(Equal([]screenshot.Status{
				screenshot.StatusSuccess,
				screenshot.StatusFlagged,
				screenshot.StatusFailed,
			}))

			processed, err := f.store.LoadProcessedSet(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(processed).To(HaveLen(3))

			_, ok := f.lib.MovedTo("good")
			Expect(ok).To(BeTrue())
			_, ok = f.lib.MovedTo("weak")
			Expect(ok).To(BeFalse())
			_, ok = f.lib.MovedTo("broken")
			Expect(ok).To(BeFalse())
		})

		It("flags a failed transcription as failed with unknown type", func() {
			f := newFixture(nil, "broken")
			f.lib.Add(shot("broken"))

			summary, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			record := summary.Results[0]
			Expect(record.Status).To(Equal(screenshot.StatusFailed))
			Expect(record.ContentType).To(Equal(screenshot.ContentTypeUnknown))
			Expect(record.Message).To(ContainSubstring("transcription failed"))
		})
	})

	Describe("idempotent resume", func() {
		It("skips cached and legacy-marked items", func() {
			f := newFixture(map[string][]screenshot.Fragment{
				"cached": musicFrags,
				"noted":  musicFrags,
				"fresh":  memeFrags,
			})
			f.lib.Add(shot("cached"))
			noted := shot("noted")
			noted.Note = "Sorted by Screensort: [success] music"
			f.lib.Add(noted)
			f.lib.Add(shot("fresh"))

			Expect(f.store.MarkProcessed(ctx, "cached")).To(Succeed())

			summary, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.Total).To(Equal(1))
			Expect(summary.Results[0].ScreenshotID).To(Equal("fresh"))
		})

		It("finds nothing to do on the second run", func() {
			f := newFixture(map[string][]screenshot.Fragment{"joke": memeFrags})
			f.lib.Add(shot("joke"))

			first, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Outcome).To(Equal(pipeline.OutcomeCompleted))

			second, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Outcome).To(Equal(pipeline.OutcomeNothingToDo))
			Expect(second.Total).To(BeZero())
		})

		It("reports nothing to do for an empty library", func() {
			f := newFixture(nil)

			summary, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Outcome).To(Equal(pipeline.OutcomeNothingToDo))
			Expect(f.events.batches).To(HaveLen(1))
			Expect(f.events.batches[0].Outcome).To(Equal("nothing-to-do"))
		})
	})

	Describe("cancellation", func() {
		It("stops before the next item and keeps accumulated results", func() {
			f := newFixture(map[string][]screenshot.Fragment{
				"one":   memeFrags,
				"two":   memeFrags,
				"three": memeFrags,
			})
			f.lib.Add(shot("one"))
			f.lib.Add(shot("two"))
			f.lib.Add(shot("three"))

			cancellable, cancel := context.WithCancel(ctx)
			f.cfg.OnProgress = func(done, total int) {
				if done == 2 {
					cancel()
				}
			}

			summary, err := f.run(cancellable)
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.Outcome).To(Equal(pipeline.OutcomeCancelled))
			Expect(summary.Total).To(Equal(2))

			processed, err := f.store.LoadProcessedSet(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(processed).To(HaveLen(2))
			Expect(processed).NotTo(HaveKey("three"))

			records, err := f.store.LoadResults(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))

			Expect(f.events.batches).To(HaveLen(1))
			Expect(f.events.batches[0].Outcome).To(Equal("cancelled"))
		})
	})

	Describe("preconditions", func() {
		It("fails on library access before doing any work", func() {
			f := newFixture(map[string][]screenshot.Fragment{"song": musicFrags})
			f.lib.Add(shot("song"))
			f.lib.AuthErr = errors.New("permission denied")

			_, err := f.run(ctx)
			Expect(err).To(MatchError(ContainSubstring("library access")))

			processed, err := f.store.LoadProcessedSet(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(processed).To(BeEmpty())
		})

		It("fails on missing credentials with a distinct error", func() {
			f := newFixture(map[string][]screenshot.Fragment{"song": musicFrags})
			f.lib.Add(shot("song"))
			f.cfg.CredentialCheck = func() error {
				return errors.New("no model key configured")
			}

			_, err := f.run(ctx)
			Expect(err).To(MatchError(ContainSubstring("missing credentials")))
		})

		It("fails when the playlist cannot be acquired", func() {
			f := newFixture(map[string][]screenshot.Fragment{"song": musicFrags})
			f.lib.Add(shot("song"))
			f.playlist.GetOrCreateErr = errors.New("playlist service down")

			_, err := f.run(ctx)
			Expect(err).To(MatchError(ContainSubstring("acquiring playlist")))

			processed, err := f.store.LoadProcessedSet(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(processed).To(BeEmpty())
		})

		It("fails when a destination cannot be ensured", func() {
			f := newFixture(map[string][]screenshot.Fragment{"song": musicFrags})
			f.lib.Add(shot("song"))
			f.lib.EnsureErrs[screenshot.ContentTypeMeme] = errors.New("read-only filesystem")

			_, err := f.run(ctx)
			Expect(err).To(MatchError(ContainSubstring("ensuring destination meme")))
		})
	})

	Describe("best-effort enrichment", func() {
		It("still succeeds when the video search fails", func() {
			f := newFixture(map[string][]screenshot.Fragment{"song": musicFrags})
			f.lib.Add(shot("song"))
			f.searcher.Err = errors.New("catalog offline")

			summary, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			record := summary.Results[0]
			Expect(record.Status).To(Equal(screenshot.StatusSuccess))
			Expect(record.Link).To(BeEmpty())

			moved, ok := f.lib.MovedTo("song")
			Expect(ok).To(BeTrue())
			Expect(moved).To(Equal(screenshot.ContentTypeMusic))
		})

		It("flags music when the playlist add fails", func() {
			f := newFixture(map[string][]screenshot.Fragment{"song": musicFrags})
			f.lib.Add(shot("song"))
			f.playlist.AddErr = errors.New("playlist full")

			summary, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			record := summary.Results[0]
			Expect(record.Status).To(Equal(screenshot.StatusFlagged))
			Expect(record.Message).To(ContainSubstring("playlist add failed"))
			Expect(record.Title).To(Equal("Blinding Lights"))

			_, ok := f.lib.MovedTo("song")
			Expect(ok).To(BeFalse())
		})

		It("flags items when the journal append fails", func() {
			f := newFixture(map[string][]screenshot.Fragment{"novel": bookFrags})
			f.lib.Add(shot("novel"))
			f.journal.Err = errors.New("journal offline")

			summary, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			record := summary.Results[0]
			Expect(record.Status).To(Equal(screenshot.StatusFlagged))
			Expect(record.Message).To(ContainSubstring("journal append failed"))

			_, ok := f.lib.MovedTo("novel")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("move failures", func() {
		It("degrades music to flagged and keeps the metadata", func() {
			f := newFixture(map[string][]screenshot.Fragment{"song": musicFrags})
			f.lib.Add(shot("song"))
			f.lib.MoveErrs["song"] = errors.New("disk full")

			summary, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			record := summary.Results[0]
			Expect(record.Status).To(Equal(screenshot.StatusFlagged))
			Expect(record.Message).To(ContainSubstring("move failed"))
			Expect(record.Title).To(Equal("Blinding Lights"))
			Expect(record.Creator).To(Equal("The Weeknd"))
		})

		It("fails memes that cannot be moved", func() {
			f := newFixture(map[string][]screenshot.Fragment{"joke": memeFrags})
			f.lib.Add(shot("joke"))
			f.lib.MoveErrs["joke"] = errors.New("disk full")

			summary, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Results[0].Status).To(Equal(screenshot.StatusFailed))
		})
	})

	Describe("limits and previews", func() {
		It("caps the batch at the configured limit", func() {
			f := newFixture(map[string][]screenshot.Fragment{
				"one":   memeFrags,
				"two":   memeFrags,
				"three": memeFrags,
			})
			f.lib.Add(shot("one"))
			f.lib.Add(shot("two"))
			f.lib.Add(shot("three"))
			f.cfg.Limit = 2

			summary, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Total).To(Equal(2))

			processed, err := f.store.LoadProcessedSet(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(processed).NotTo(HaveKey("three"))
		})

		It("mutates nothing in dry-run mode", func() {
			f := newFixture(map[string][]screenshot.Fragment{
				"song": musicFrags,
				"list": unknownFrags,
			})
			f.lib.Add(shot("song"))
			f.lib.Add(shot("list"))
			f.cfg.DryRun = true

			summary, err := f.run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.Total).To(Equal(2))
			Expect(summary.Succeeded).To(Equal(1))
			Expect(summary.Flagged).To(Equal(1))
			Expect(summary.Results[0].Message).To(ContainSubstring("would sort into music"))

			processed, err := f.store.LoadProcessedSet(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(processed).To(BeEmpty())

			_, ok := f.lib.MovedTo("song")
			Expect(ok).To(BeFalse())
			_, ok = f.lib.Note("song")
			Expect(ok).To(BeFalse())

			Expect(f.playlist.GetOrCreateCalls).To(BeZero())
			Expect(f.events.results).To(BeEmpty())
			Expect(f.events.batches).To(BeEmpty())
		})
	})

	Describe("persistence failures", func() {
		It("returns the summary alongside a save error", func() {
			f := newFixture(map[string][]screenshot.Fragment{"joke": memeFrags})
			f.lib.Add(shot("joke"))
			f.cfg.Cache = failingSave{Store: f.store, err: errors.New("disk full")}

			summary, err := f.run(ctx)
			Expect(err).To(MatchError(ContainSubstring("saving results")))
			Expect(summary.Outcome).To(Equal(pipeline.OutcomeCompleted))
			Expect(summary.Total).To(Equal(1))
		})
	})

	Describe("construction", func() {
		It("rejects a config without required collaborators", func() {
			_, err := pipeline.New(pipeline.Config{})
			Expect(err).To(MatchError(ContainSubstring("library is required")))
		})
	})
})

// failingSave passes everything through except SaveResults.
type failingSave struct {
	cache.Store
	err error
}

func (f failingSave) SaveResults(_ context.Context, _ []screenshot.ResultRecord) error {
	return f.err
}
