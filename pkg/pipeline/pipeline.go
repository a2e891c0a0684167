// Package pipeline runs one sorting batch end to end: fetch candidate
// screenshots, skip what was already processed, classify and extract each
// remaining item one at a time, organize items into their destinations,
// and record every outcome durably.
//
// Cancellation is cooperative at item granularity. The processed set is
// written through after every item, so an interrupted batch resumes
// without repeating work.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mitgor/screensort/pkg/cache"
	"github.com/mitgor/screensort/pkg/classify"
	"github.com/mitgor/screensort/pkg/enrich"
	"github.com/mitgor/screensort/pkg/eventstream"
	"github.com/mitgor/screensort/pkg/eventstream/nop"
	"github.com/mitgor/screensort/pkg/extract"
	"github.com/mitgor/screensort/pkg/journal"
	"github.com/mitgor/screensort/pkg/library"
	"github.com/mitgor/screensort/pkg/logger"
	"github.com/mitgor/screensort/pkg/metrics"
	"github.com/mitgor/screensort/pkg/screenshot"
	"github.com/mitgor/screensort/pkg/vision"
)

// legacyMarker is written into every annotation so items stay skippable
// even if the cache is lost. Older installs wrote the same marker.
const legacyMarker = "sorted by screensort"

// DefaultPlaylistName is the shared playlist batches collect song links
// into.
const DefaultPlaylistName = "screensort"

// Outcome is the terminal state of a batch.
type Outcome string

const (
	// OutcomeCompleted means every pending item got a result record.
	OutcomeCompleted Outcome = "completed"

	// OutcomeCancelled means the batch stopped early on cancellation.
	// Results produced before the stop remain valid.
	OutcomeCancelled Outcome = "cancelled"

	// OutcomeNothingToDo means no pending items were found.
	OutcomeNothingToDo Outcome = "nothing-to-do"
)

// Summary reports what one batch did.
type Summary struct {
	Outcome   Outcome
	Total     int
	Succeeded int
	Flagged   int
	Failed    int
	Duration  time.Duration
	Results   []screenshot.ResultRecord
}

// Config wires the processor's collaborators. Library, Transcriber,
// Classifier, the three extractors, and Cache are required; everything
// else degrades gracefully when absent.
type Config struct {
	Library     library.Library
	Transcriber vision.Transcriber
	Classifier  classify.Classifier
	Music       *extract.Music
	Movie       *extract.Movie
	Book        *extract.Book
	Cache       cache.Store

	// Videos, Movies, and Books are best-effort catalog lookups; nil
	// skips the lookup, a failure only omits the external link.
	Videos enrich.VideoSearcher
	Movies enrich.MovieSearcher
	Books  enrich.BookSearcher

	// Playlist collects found song links. Nil skips playlist handling.
	Playlist enrich.Playlist

	// PlaylistName defaults to DefaultPlaylistName.
	PlaylistName string

	// Journal receives one entry per sorted item. Nil skips journaling.
	Journal journal.Appender

	// Events defaults to the nop publisher.
	Events eventstream.Publisher

	// Source identifies this installation on published events.
	Source eventstream.EventSource

	// Metrics may be nil.
	Metrics *metrics.Metrics

	// Log defaults to a no-op logger.
	Log *slog.Logger

	// CredentialCheck runs as a batch precondition when set. It should
	// verify whatever keys the configured collaborators need.
	CredentialCheck func() error

	// OnProgress, when set, is called with (done, total), 1-based,
	// before each item.
	OnProgress func(done, total int)

	// Limit caps how many pending items one batch processes. Zero means
	// no cap.
	Limit int

	// DryRun previews classification without mutating anything: no
	// moves, no annotations, no cache writes, no published events.
	DryRun bool
}

// Processor runs batches.
type Processor struct {
	lib         library.Library
	transcriber vision.Transcriber
	classifier  classify.Classifier
	music       *extract.Music
	movie       *extract.Movie
	book        *extract.Book
	store       cache.Store

	videos   enrich.VideoSearcher
	movies   enrich.MovieSearcher
	books    enrich.BookSearcher
	playlist enrich.Playlist
	journal  journal.Appender

	events  eventstream.Publisher
	source  eventstream.EventSource
	metrics *metrics.Metrics
	log     *slog.Logger

	playlistName    string
	credentialCheck func() error
	onProgress      func(done, total int)
	limit           int
	dryRun          bool

	now func() time.Time
}

// New validates the config and creates a processor.
func New(cfg Config) (*Processor, error) {
	switch {
	case cfg.Library == nil:
		return nil, fmt.Errorf("library is required")
	case cfg.Transcriber == nil:
		return nil, fmt.Errorf("transcriber is required")
	case cfg.Classifier == nil:
		return nil, fmt.Errorf("classifier is required")
	case cfg.Music == nil || cfg.Movie == nil || cfg.Book == nil:
		return nil, fmt.Errorf("all three extractors are required")
	case cfg.Cache == nil:
		return nil, fmt.Errorf("cache store is required")
	}

	events := cfg.Events
	if events == nil {
		events = nop.NewPublisher()
	}

	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}

	playlistName := cfg.PlaylistName
	if playlistName == "" {
		playlistName = DefaultPlaylistName
	}

	return &Processor{
		lib:             cfg.Library,
		transcriber:     cfg.Transcriber,
		classifier:      cfg.Classifier,
		music:           cfg.Music,
		movie:           cfg.Movie,
		book:            cfg.Book,
		store:           cfg.Cache,
		videos:          cfg.Videos,
		movies:          cfg.Movies,
		books:           cfg.Books,
		playlist:        cfg.Playlist,
		journal:         cfg.Journal,
		events:          events,
		source:          cfg.Source,
		metrics:         cfg.Metrics,
		log:             log,
		playlistName:    playlistName,
		credentialCheck: cfg.CredentialCheck,
		onProgress:      cfg.OnProgress,
		limit:           cfg.Limit,
		dryRun:          cfg.DryRun,
		now:             time.Now,
	}, nil
}

// Run executes one batch. Per-item failures never abort the batch; they
// become flagged or failed records. A batch-level error is returned only
// for failed preconditions, setup, or persistence. When saving results
// fails, the in-memory summary is returned alongside the error.
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	started := p.now()

	if err := p.lib.Authorized(ctx); err != nil {
		return Summary{}, fmt.Errorf("library access: %w", err)
	}
	if p.credentialCheck != nil {
		if err := p.credentialCheck(); err != nil {
			return Summary{}, fmt.Errorf("missing credentials: %w", err)
		}
	}

	shots, err := p.lib.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("listing screenshots: %w", err)
	}

	pending, err := p.filterPending(ctx, shots)
	if err != nil {
		return Summary{}, err
	}
	if p.limit > 0 && len(pending) > p.limit {
		pending = pending[:p.limit]
	}

	if len(pending) == 0 {
		p.log.Info("nothing to do", "candidates", len(shots))
		summary := Summary{Outcome: OutcomeNothingToDo, Duration: p.now().Sub(started)}
		if !p.dryRun {
			p.finishBatch(ctx, summary)
		}
		return summary, nil
	}

	p.log.Info("starting batch", "pending", len(pending), "candidates", len(shots))

	if p.dryRun {
		return p.preview(ctx, pending, started)
	}

	playlistID := ""
	if p.playlist != nil {
		playlistID, err = p.playlist.GetOrCreate(ctx, p.playlistName)
		if err != nil {
			return Summary{}, fmt.Errorf("acquiring playlist %q: %w", p.playlistName, err)
		}
	}

	if err := p.ensureDestinations(ctx); err != nil {
		return Summary{}, err
	}

	total := len(pending)
	results := make([]screenshot.ResultRecord, 0, total)
	cancelled := false

	// Marks and the final save must land even when the batch context is
	// already cancelled; a processed item stays processed.
	durable := context.WithoutCancel(ctx)

	for i, shot := range pending {
		if ctx.Err() != nil {
			p.log.Info("batch cancelled", "processed", len(results), "remaining", total-len(results))
			cancelled = true
			break
		}

		if p.onProgress != nil {
			p.onProgress(i+1, total)
		}

		itemStart := p.now()
		record := p.processItem(ctx, shot, playlistID)
		results = append(results, record)

		if err := p.store.MarkProcessed(durable, shot.ID); err != nil {
			p.log.Error("marking processed", "screenshot", shot.ID, "error", err)
		}

		p.metrics.ObserveItem(record.Status, record.ContentType, p.now().Sub(itemStart))
		p.publishResult(durable, record)
	}

	summary := p.summarize(results, cancelled, started)

	if err := p.store.SaveResults(durable, results); err != nil {
		return summary, fmt.Errorf("saving results: %w", err)
	}

	p.finishBatch(durable, summary)

	p.log.Info("batch finished",
		"outcome", summary.Outcome,
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"flagged", summary.Flagged,
		"failed", summary.Failed,
	)

	return summary, nil
}

// filterPending drops everything the cache or a legacy annotation says is
// already done.
func (p *Processor) filterPending(ctx context.Context, shots []screenshot.Screenshot) ([]screenshot.Screenshot, error) {
	processed, err := p.store.LoadProcessedSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading processed set: %w", err)
	}

	pending := make([]screenshot.Screenshot, 0, len(shots))
	for _, shot := range shots {
		if processed[shot.ID] {
			continue
		}
		if strings.Contains(strings.ToLower(shot.Note), legacyMarker) {
			continue
		}
		pending = append(pending, shot)
	}

	return pending, nil
}

// ensureDestinations creates all per-type destinations concurrently.
// They are independent and idempotent, so order does not matter.
func (p *Processor) ensureDestinations(ctx context.Context) error {
	types := screenshot.DestinationTypes()
	errs := make([]error, len(types))

	var wg sync.WaitGroup
	for i, contentType := range types {
		wg.Add(1)
		go func(i int, ct screenshot.ContentType) {
			defer wg.Done()
			errs[i] = p.lib.EnsureDestination(ctx, ct)
		}(i, contentType)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("ensuring destination %s: %w", types[i], err)
		}
	}

	return nil
}

// preview is the dry-run path: transcribe and classify only, touch
// nothing.
func (p *Processor) preview(ctx context.Context, pending []screenshot.Screenshot, started time.Time) (Summary, error) {
	total := len(pending)
	results := make([]screenshot.ResultRecord, 0, total)
	cancelled := false

	for i, shot := range pending {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		if p.onProgress != nil {
			p.onProgress(i+1, total)
		}

		fragments, err := p.transcriber.Transcribe(ctx, shot)
		if err != nil {
			results = append(results, screenshot.NewResultRecord(
				shot.ID, screenshot.StatusFailed, screenshot.ContentTypeUnknown,
				fmt.Sprintf("transcription failed: %v", err)))
			continue
		}

		contentType := p.classifier.Classify(ctx, fragments)
		if contentType == screenshot.ContentTypeUnknown {
			results = append(results, screenshot.NewResultRecord(
				shot.ID, screenshot.StatusFlagged, contentType, "would leave in place"))
			continue
		}

		results = append(results, screenshot.NewResultRecord(
			shot.ID, screenshot.StatusSuccess, contentType,
			fmt.Sprintf("would sort into %s", contentType)))
	}

	return p.summarize(results, cancelled, started), nil
}

func (p *Processor) summarize(results []screenshot.ResultRecord, cancelled bool, started time.Time) Summary {
	summary := Summary{
		Outcome:  OutcomeCompleted,
		Total:    len(results),
		Duration: p.now().Sub(started),
		Results:  results,
	}
	if cancelled {
		summary.Outcome = OutcomeCancelled
	}

	for _, record := range results {
		switch record.Status {
		case screenshot.StatusSuccess:
			summary.Succeeded++
		case screenshot.StatusFlagged:
			summary.Flagged++
		case screenshot.StatusFailed:
			summary.Failed++
		}
	}

	return summary
}

func (p *Processor) publishResult(ctx context.Context, record screenshot.ResultRecord) {
	event := eventstream.NewResultEvent(p.source, record)
	if err := p.events.PublishResult(ctx, event); err != nil {
		p.log.Debug("publishing result event", "error", err)
	}
}

func (p *Processor) finishBatch(ctx context.Context, summary Summary) {
	p.metrics.ObserveBatch(string(summary.Outcome), summary.Duration)

	event := eventstream.NewBatchEvent(p.source, string(summary.Outcome), eventstream.BatchSummary{
		Total:     summary.Total,
		Succeeded: summary.Succeeded,
		Flagged:   summary.Flagged,
		Failed:    summary.Failed,
	}, summary.Duration)
	if err := p.events.PublishBatch(ctx, event); err != nil {
		p.log.Debug("publishing batch event", "error", err)
	}
}
