// Package watchcmder provides the watch command that keeps sorting as new
// screenshots arrive.
package watchcmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/mitgor/screensort/cmd/screensort/cachestore"
	"github.com/mitgor/screensort/cmd/screensort/librarypath"
	"github.com/mitgor/screensort/pkg/cache"
	"github.com/mitgor/screensort/pkg/classify"
	"github.com/mitgor/screensort/pkg/config"
	"github.com/mitgor/screensort/pkg/credentials"
	"github.com/mitgor/screensort/pkg/dotdir"
	"github.com/mitgor/screensort/pkg/enrich"
	"github.com/mitgor/screensort/pkg/eventstream"
	"github.com/mitgor/screensort/pkg/eventstream/kafka"
	"github.com/mitgor/screensort/pkg/eventstream/nop"
	"github.com/mitgor/screensort/pkg/extract"
	"github.com/mitgor/screensort/pkg/journal"
	"github.com/mitgor/screensort/pkg/library/fs"
	"github.com/mitgor/screensort/pkg/llm"
	"github.com/mitgor/screensort/pkg/logger"
	"github.com/mitgor/screensort/pkg/metrics"
	"github.com/mitgor/screensort/pkg/pipeline"
	"github.com/mitgor/screensort/pkg/utils"
	"github.com/mitgor/screensort/pkg/vision"
)

const watchLongDesc string = `Watch the library and sort screenshots as they arrive.

The library directory is watched for changes. Once it has been quiet for
the debounce window, a batch runs over everything pending. Prometheus
metrics are served on the metrics address for the lifetime of the watch.

Press Ctrl-C to stop; an in-flight batch finishes its current item first.

Examples:
  screensort watch
  screensort watch --debounce 5000
  screensort watch --metrics-listen :9191`

const watchShortDesc string = "Sort screenshots as they arrive"

type WatchCommander struct {
	debug     bool
	configDir string

	library         string
	destinationRoot string
	cacheBackend    string
	sqlitePath      string
	postgresDSN     string
	provider        string
	model           string
	baseURL         string
	threshold       float64
	visionEndpoint  string

	playlistName     string
	playlistEndpoint string
	journalEndpoint  string

	streamProvider string
	streamBrokers  string
	streamTopic    string

	debounceMS    uint
	metricsListen string

	logger *slog.Logger
}

func NewWatchCmd() *cobra.Command {
	cmder := &WatchCommander{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, err = cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %w", err)
			}

			if err := cmder.resolveConfig(cmd); err != nil {
				return err
			}

			return cmder.run(cmd.Context())
		},
	}

	fs := config.DefaultFlagSet()
	config.AddStringFlag(cmd, fs, config.FlagLibrary, &cmder.library)
	config.AddStringFlag(cmd, fs, config.FlagDestinationRoot, &cmder.destinationRoot)
	config.AddStringFlag(cmd, fs, config.FlagCacheBackend, &cmder.cacheBackend)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, fs, config.FlagProvider, &cmder.provider)
	config.AddStringFlag(cmd, fs, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, fs, config.FlagBaseURL, &cmder.baseURL)
	config.AddFloat64Flag(cmd, fs, config.FlagThreshold, &cmder.threshold)
	config.AddStringFlag(cmd, fs, config.FlagVisionEndpoint, &cmder.visionEndpoint)
	config.AddStringFlag(cmd, fs, config.FlagPlaylistName, &cmder.playlistName)
	config.AddStringFlag(cmd, fs, config.FlagJournalEndpoint, &cmder.journalEndpoint)
	config.AddStringFlag(cmd, fs, config.FlagStreamProvider, &cmder.streamProvider)
	config.AddStringFlag(cmd, fs, config.FlagStreamBrokers, &cmder.streamBrokers)
	config.AddStringFlag(cmd, fs, config.FlagStreamTopic, &cmder.streamTopic)
	config.AddUintFlag(cmd, fs, config.FlagDebounce, &cmder.debounceMS)
	config.AddStringFlag(cmd, fs, config.FlagMetricsListen, &cmder.metricsListen)

	return cmd
}

func watchBindKeys() []string {
	return []string{
		config.FlagLibrary, config.FlagDestinationRoot,
		config.FlagCacheBackend, config.FlagSQLite, config.FlagPostgresDSN,
		config.FlagProvider, config.FlagModel, config.FlagBaseURL, config.FlagThreshold,
		config.FlagVisionEndpoint,
		config.FlagPlaylistName, config.FlagJournalEndpoint,
		config.FlagStreamProvider, config.FlagStreamBrokers, config.FlagStreamTopic,
		config.FlagDebounce, config.FlagMetricsListen,
	}
}

func (c *WatchCommander) resolveConfig(cmd *cobra.Command) error {
	v, err := config.InitViper(c.configDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.DefaultFlagSet(), watchBindKeys())

	c.library = v.GetString("library.path")
	c.destinationRoot = v.GetString("library.destination_root")
	c.cacheBackend = v.GetString("cache.backend")
	c.sqlitePath = v.GetString("cache.sqlite_path")
	c.postgresDSN = v.GetString("cache.postgres_dsn")
	c.provider = v.GetString("model.provider")
	c.model = v.GetString("model.model")
	c.baseURL = v.GetString("model.base_url")
	c.threshold = v.GetFloat64("model.confidence_threshold")
	c.visionEndpoint = v.GetString("vision.endpoint")
	c.playlistName = v.GetString("enrich.playlist_name")
	c.playlistEndpoint = v.GetString("enrich.playlist_endpoint")
	c.journalEndpoint = v.GetString("enrich.journal_endpoint")
	c.streamProvider = v.GetString("event_stream.provider")
	c.streamBrokers = v.GetString("event_stream.brokers")
	c.streamTopic = v.GetString("event_stream.topic")
	c.debounceMS = v.GetUint("watch.debounce_ms")
	c.metricsListen = v.GetString("watch.metrics_listen")

	return nil
}

func (c *WatchCommander) run(ctx context.Context) error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	// Long-running watches also append JSON records to .screensort/watch.log
	// so batches that ran overnight can be inspected later.
	if logFile, err := c.openLogFile(); err == nil {
		defer logFile.Close()
		c.logger = logger.Multi(c.logger, logger.New(
			logger.WithDebug(c.debug),
			logger.WithJSON(true),
			logger.WithWriter(logFile),
			logger.WithSource(c.debug),
		))
	} else {
		c.logger.Debug("no log file for this watch", "error", err)
	}

	processor, store, events, mets, libraryPath, err := c.buildProcessor(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	defer events.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(libraryPath); err != nil {
		return fmt.Errorf("watching %s: %w", libraryPath, err)
	}

	// Channel to capture errors from goroutines
	errChan := make(chan error, 1)

	// Serve Prometheus metrics for the lifetime of the watch.
	mux := http.NewServeMux()
	mux.Handle("/metrics", mets.Handler())
	metricsSrv := &http.Server{Addr: c.metricsListen, Handler: mux}

	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig, ok := <-sigChan
		if !ok {
			return
		}
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		signal.Stop(sigChan)
		cancel()
	}()

	debounce := time.Duration(c.debounceMS) * time.Millisecond

	// The initial fire sweeps whatever was pending before the watch
	// started.
	settle := newSettleTimer(debounce)
	defer settle.Stop()

	c.logger.Info("watching library",
		"path", libraryPath,
		"debounce", debounce,
		"metrics", c.metricsListen,
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-errChan:
			return err

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			// The library is still changing; wait for it to settle.
			settle.Bump()

		case err := <-watcher.Errors:
			return fmt.Errorf("watcher error: %w", err)

		case <-settle.C():
			summary, err := processor.Run(ctx)
			if err != nil {
				// Batch-level failures should not kill the watch;
				// the next settle retries.
				c.logger.Error("batch failed", "error", err)
			} else if summary.Outcome != pipeline.OutcomeNothingToDo {
				c.logger.Info("batch done",
					"outcome", summary.Outcome,
					"sorted", summary.Succeeded,
					"flagged", summary.Flagged,
					"failed", summary.Failed,
					"duration", summary.Duration.Round(time.Millisecond).String(),
				)
			}

			if ctx.Err() != nil {
				return nil
			}
		}
	}
}

// settleTimer fires once the library has been quiet for a full
// debounce window. Bump restarts the window.
type settleTimer struct {
	timer *time.Timer
	d     time.Duration
}

func newSettleTimer(d time.Duration) *settleTimer {
	return &settleTimer{timer: time.NewTimer(d), d: d}
}

// Bump restarts the window. Stop-and-drain avoids a stale fire when a
// bump races an expiring timer.
func (s *settleTimer) Bump() {
	if !s.timer.Stop() {
		select {
		case <-s.timer.C:
		default:
		}
	}
	s.timer.Reset(s.d)
}

func (s *settleTimer) C() <-chan time.Time { return s.timer.C }

func (s *settleTimer) Stop() { s.timer.Stop() }

func (c *WatchCommander) openLogFile() (*os.File, error) {
	dir, err := dotdir.NewManager().Target(c.configDir)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "watch.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// buildProcessor wires the same collaborators as the run command, plus
// the metrics collector the watch exposes over HTTP.
func (c *WatchCommander) buildProcessor(ctx context.Context) (*pipeline.Processor, cache.Store, eventstream.Publisher, *metrics.Metrics, string, error) {
	libraryPath, err := librarypath.Resolve(c.library)
	if err != nil {
		return nil, nil, nil, nil, "", err
	}

	destRoot := c.destinationRoot
	if destRoot == "" {
		destRoot = libraryPath
	}
	lib := fs.New(libraryPath, destRoot)

	store, err := cachestore.Open(ctx, c.cacheBackend, c.sqlitePath, c.postgresDSN)
	if err != nil {
		return nil, nil, nil, nil, "", err
	}

	visionOpts := []vision.Option{vision.WithLogger(c.logger)}
	if c.debug {
		visionOpts = append(visionOpts, vision.WithSnapshots(dotdir.NewManager()))
	}
	transcriber := vision.NewClient(c.visionEndpoint, visionOpts...)

	credMgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		store.Close()
		return nil, nil, nil, nil, "", fmt.Errorf("loading credentials: %w", err)
	}

	classifier, call := c.buildClassifier(credMgr)

	extractOpts := []extract.Option{
		extract.WithThreshold(c.threshold),
		extract.WithLogger(c.logger),
	}

	events, err := c.buildPublisher()
	if err != nil {
		store.Close()
		return nil, nil, nil, nil, "", err
	}

	mets := metrics.New()
	hostname, _ := os.Hostname()

	cfg := pipeline.Config{
		Library:     lib,
		Transcriber: transcriber,
		Classifier:  classifier,
		Music:       extract.NewMusic(classifier, call, extractOpts...),
		Movie:       extract.NewMovie(classifier, call, extractOpts...),
		Book:        extract.NewBook(classifier, call, extractOpts...),
		Cache:       store,

		Videos: enrich.NewITunes(enrich.WithLogger(c.logger)),
		Books:  enrich.NewOpenLibrary(enrich.WithLogger(c.logger)),

		PlaylistName: c.playlistName,
		Events:       events,
		Source: eventstream.EventSource{
			Library: libraryPath,
			Host:    hostname,
			Version: utils.Version,
		},
		Metrics: mets,
		Log:     c.logger,
	}

	if tmdbKey, err := credMgr.ResolveKey("tmdb"); err == nil && tmdbKey != "" {
		cfg.Movies = enrich.NewTMDB(tmdbKey, enrich.WithLogger(c.logger))
	}

	if c.playlistEndpoint != "" {
		cfg.Playlist = enrich.NewHTTPPlaylist(c.playlistEndpoint, enrich.WithLogger(c.logger))
	}
	if c.journalEndpoint != "" {
		cfg.Journal = journal.NewHTTPAppender(c.journalEndpoint, journal.WithLogger(c.logger))
	}

	processor, err := pipeline.New(cfg)
	if err != nil {
		store.Close()
		events.Close()
		return nil, nil, nil, nil, "", fmt.Errorf("building pipeline: %w", err)
	}

	return processor, store, events, mets, libraryPath, nil
}

func (c *WatchCommander) buildClassifier(credMgr *credentials.Manager) (classify.Classifier, llm.Caller) {
	llmCfg := llm.Config{
		Provider: c.provider,
		Model:    c.model,
		BaseURL:  c.baseURL,
		CredMgr:  credMgr,
	}

	if !llm.HasCredentials(llmCfg) {
		c.logger.Warn("no model credentials, falling back to keyword classification",
			"provider", c.provider,
		)
		return classify.NewKeyword(), nil
	}

	call, err := llm.New(llmCfg)
	if err != nil {
		c.logger.Warn("model unavailable, falling back to keyword classification", "error", err)
		return classify.NewKeyword(), nil
	}

	return classify.NewModel(call, c.logger), call
}

func (c *WatchCommander) buildPublisher() (eventstream.Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(c.streamProvider)) {
	case "", "nop", "none":
		return nop.NewPublisher(), nil

	case "kafka":
		brokers := make([]string, 0)
		for _, part := range strings.Split(c.streamBrokers, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				brokers = append(brokers, trimmed)
			}
		}
		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: brokers,
			Topic:   c.streamTopic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return publisher, nil

	default:
		return nil, fmt.Errorf("unknown event stream provider: %q (expected nop or kafka)", c.streamProvider)
	}
}
