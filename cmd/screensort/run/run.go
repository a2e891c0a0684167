// Package runcmder provides the run command that sorts one batch of
// screenshots end to end.
package runcmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mitgor/screensort/cmd/screensort/cachestore"
	"github.com/mitgor/screensort/cmd/screensort/librarypath"
	"github.com/mitgor/screensort/pkg/cache"
	"github.com/mitgor/screensort/pkg/classify"
	"github.com/mitgor/screensort/pkg/cliui"
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
	"github.com/mitgor/screensort/pkg/screenshot"
	"github.com/mitgor/screensort/pkg/utils"
	"github.com/mitgor/screensort/pkg/vision"
)

const runLongDesc string = `Sort every pending screenshot in the library.

Each screenshot is transcribed, classified, and moved into a per-type
folder. Music screenshots additionally collect a video link into the
configured playlist and a journal entry when those services are set up.

Progress is saved after every screenshot, so an interrupted run picks up
exactly where it stopped. Press Ctrl-C to stop after the current item.

Examples:
  screensort run
  screensort run --dry-run
  screensort run --limit 10
  screensort run --library ~/Pictures/Screenshots --provider openai`

const runShortDesc string = "Sort pending screenshots"

type RunCommander struct {
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

	dryRun bool
	limit  int

	logger *slog.Logger
}

func NewRunCmd() *cobra.Command {
	cmder := &RunCommander{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: runShortDesc,
		Long:  runLongDesc,
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

	cmd.Flags().BoolVar(&cmder.dryRun, "dry-run", false, "Preview classification without moving or recording anything")
	cmd.Flags().IntVar(&cmder.limit, "limit", 0, "Cap how many pending screenshots this batch processes (0 = no cap)")

	return cmd
}

// runBindKeys lists the registry keys the run command binds into viper.
func runBindKeys() []string {
	return []string{
		config.FlagLibrary, config.FlagDestinationRoot,
		config.FlagCacheBackend, config.FlagSQLite, config.FlagPostgresDSN,
		config.FlagProvider, config.FlagModel, config.FlagBaseURL, config.FlagThreshold,
		config.FlagVisionEndpoint,
		config.FlagPlaylistName, config.FlagJournalEndpoint,
		config.FlagStreamProvider, config.FlagStreamBrokers, config.FlagStreamTopic,
	}
}

// resolveConfig merges flags, environment, config file, and defaults into
// the commander fields. Precedence: flag > env > file > default.
func (c *RunCommander) resolveConfig(cmd *cobra.Command) error {
	v, err := config.InitViper(c.configDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.DefaultFlagSet(), runBindKeys())

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

	return nil
}

func (c *RunCommander) run(ctx context.Context) error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	processor, store, events, err := c.buildProcessor(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	defer events.Close()

	// Ctrl-C stops after the current item; a second signal kills the
	// process the usual way.
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
		c.logger.Info("received signal, finishing current item", "signal", sig.String())
		signal.Stop(sigChan)
		cancel()
	}()

	summary, err := processor.Run(ctx)
	if err != nil {
		return err
	}

	c.renderSummary(summary)
	return nil
}

// buildProcessor wires every collaborator from the resolved configuration.
func (c *RunCommander) buildProcessor(ctx context.Context) (*pipeline.Processor, cache.Store, eventstream.Publisher, error) {
	libraryPath, err := librarypath.Resolve(c.library)
	if err != nil {
		return nil, nil, nil, err
	}

	destRoot := c.destinationRoot
	if destRoot == "" {
		destRoot = libraryPath
	}
	lib := fs.New(libraryPath, destRoot)

	store, err := cachestore.Open(ctx, c.cacheBackend, c.sqlitePath, c.postgresDSN)
	if err != nil {
		return nil, nil, nil, err
	}

	visionOpts := []vision.Option{vision.WithLogger(c.logger)}
	if c.debug {
		visionOpts = append(visionOpts, vision.WithSnapshots(dotdir.NewManager()))
	}
	transcriber := vision.NewClient(c.visionEndpoint, visionOpts...)

	credMgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("loading credentials: %w", err)
	}

	classifier, call := c.buildClassifier(credMgr)

	extractOpts := []extract.Option{
		extract.WithThreshold(c.threshold),
		extract.WithLogger(c.logger),
	}

	events, err := c.buildPublisher()
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}

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
		Metrics: metrics.New(),
		Log:     c.logger,

		OnProgress: func(done, total int) {
			fmt.Printf("\r  %s sorting %d of %d", cliui.StepStyle.Render("→"), done, total)
			if done == total {
				fmt.Println()
			}
		},

		Limit:  c.limit,
		DryRun: c.dryRun,
	}

	// TMDb is key-gated; movie lookups are skipped without it.
	if tmdbKey, err := credMgr.ResolveKey("tmdb"); err == nil && tmdbKey != "" {
		cfg.Movies = enrich.NewTMDB(tmdbKey, enrich.WithLogger(c.logger))
	} else {
		c.logger.Debug("no tmdb key, skipping movie lookups")
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
		return nil, nil, nil, fmt.Errorf("building pipeline: %w", err)
	}

	return processor, store, events, nil
}

// buildClassifier picks the model-backed classifier when credentials
// resolve and falls back to keyword matching otherwise. The returned
// caller is nil in the fallback case; extractors degrade the same way.
func (c *RunCommander) buildClassifier(credMgr *credentials.Manager) (classify.Classifier, llm.Caller) {
	llmCfg := llm.Config{
		Provider: c.provider,
		Model:    c.model,
		BaseURL:  c.baseURL,
		CredMgr:  credMgr,
	}

	if !llm.HasCredentials(llmCfg) {
		c.logger.Warn("no model credentials, falling back to keyword classification",
			"provider", c.provider,
			"hint", "screensort auth "+c.provider,
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

func (c *RunCommander) buildPublisher() (eventstream.Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(c.streamProvider)) {
	case "", "nop", "none":
		return nop.NewPublisher(), nil

	case "kafka":
		brokers := splitBrokers(c.streamBrokers)
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

func splitBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}

func (c *RunCommander) renderSummary(summary pipeline.Summary) {
	switch summary.Outcome {
	case pipeline.OutcomeNothingToDo:
		fmt.Printf("\n  %s Nothing to sort.\n\n", cliui.DimStyle.Render("●"))
		return

	case pipeline.OutcomeCancelled:
		fmt.Printf("\n  %s Cancelled after %s. Finished items stay finished; run again to continue.\n",
			cliui.WarnStyle.Render("!"),
			cliui.FormatDuration(summary.Duration),
		)

	default:
		verb := "Sorted"
		if c.dryRun {
			verb = "Previewed"
		}
		fmt.Printf("\n  %s %s %s in %s.\n",
			cliui.SuccessMark,
			verb,
			utils.Pluralize(summary.Total, "screenshot"),
			cliui.FormatDuration(summary.Duration),
		)
	}

	fmt.Printf("  %s\n\n", cliui.DimStyle.Render(fmt.Sprintf(
		"%d sorted, %d flagged, %d failed",
		summary.Succeeded, summary.Flagged, summary.Failed,
	)))

	for _, rec := range summary.Results {
		c.renderRecord(rec)
	}
	if len(summary.Results) > 0 {
		fmt.Println()
	}
}

func (c *RunCommander) renderRecord(rec screenshot.ResultRecord) {
	label := rec.Title
	if label != "" && rec.Creator != "" {
		label = fmt.Sprintf("%s by %s", rec.Title, rec.Creator)
	}
	if label == "" {
		label = rec.Message
	}

	fmt.Printf("  %s %-8s %s\n",
		cliui.StatusMark(string(rec.Status)),
		cliui.TypeStyle.Render(string(rec.ContentType)),
		cliui.ValueStyle.Render(utils.Truncate(label, 80)),
	)
}
