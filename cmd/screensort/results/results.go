// Package resultscmder provides the results command that shows what the
// last batch did.
package resultscmder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mitgor/screensort/cmd/screensort/cachestore"
	"github.com/mitgor/screensort/cmd/screensort/librarypath"
	"github.com/mitgor/screensort/pkg/cache"
	"github.com/mitgor/screensort/pkg/cliui"
	"github.com/mitgor/screensort/pkg/config"
	"github.com/mitgor/screensort/pkg/library/fs"
	"github.com/mitgor/screensort/pkg/logger"
	"github.com/mitgor/screensort/pkg/screenshot"
	"github.com/mitgor/screensort/pkg/utils"
)

const resultsLongDesc string = `Show the results of the last sorting batch.

Reads the cache only, so it is instant. Stale cache entries for
screenshots that have since been deleted are cleaned up in the
background while the results render.

Examples:
  screensort results
  screensort results --sqlite ~/.screensort/cache.db`

const resultsShortDesc string = "Show the last batch of results"

type ResultsCommander struct {
	debug     bool
	configDir string

	library      string
	cacheBackend string
	sqlitePath   string
	postgresDSN  string

	logger *slog.Logger
}

func NewResultsCmd() *cobra.Command {
	cmder := &ResultsCommander{}

	cmd := &cobra.Command{
		Use:   "results",
		Short: resultsShortDesc,
		Long:  resultsLongDesc,
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
	config.AddStringFlag(cmd, fs, config.FlagCacheBackend, &cmder.cacheBackend)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgresDSN, &cmder.postgresDSN)

	return cmd
}

func resultsBindKeys() []string {
	return []string{
		config.FlagLibrary,
		config.FlagCacheBackend, config.FlagSQLite, config.FlagPostgresDSN,
	}
}

func (c *ResultsCommander) resolveConfig(cmd *cobra.Command) error {
	v, err := config.InitViper(c.configDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.DefaultFlagSet(), resultsBindKeys())

	c.library = v.GetString("library.path")
	c.cacheBackend = v.GetString("cache.backend")
	c.sqlitePath = v.GetString("cache.sqlite_path")
	c.postgresDSN = v.GetString("cache.postgres_dsn")

	return nil
}

type cleanupOutcome struct {
	removed []string
	err     error
}

func (c *ResultsCommander) run(ctx context.Context) error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	store, err := cachestore.Open(ctx, c.cacheBackend, c.sqlitePath, c.postgresDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.LoadResults(ctx)
	if err != nil {
		return fmt.Errorf("loading results: %w", err)
	}

	// Stale-entry cleanup runs while the results render. It reads its own
	// snapshot of the cache, so the display below never waits on it.
	cleanupDone := c.startCleanup(ctx, store)

	c.render(records)

	if cleanupDone != nil {
		outcome := <-cleanupDone
		switch {
		case outcome.err != nil:
			c.logger.Debug("cache cleanup failed", "error", outcome.err)
		case len(outcome.removed) > 0:
			fmt.Printf("  %s\n\n", cliui.DimStyle.Render(fmt.Sprintf(
				"Cleaned up %s no longer in the library.",
				utils.Pluralize(len(outcome.removed), "stale cache record"),
			)))
		}
	}

	return nil
}

// startCleanup kicks off stale-entry removal in the background. Returns
// nil when no library can be resolved to check against.
func (c *ResultsCommander) startCleanup(ctx context.Context, store cache.Store) <-chan cleanupOutcome {
	libraryPath, err := librarypath.Resolve(c.library)
	if err != nil {
		c.logger.Debug("skipping cache cleanup, no library", "error", err)
		return nil
	}

	lib := fs.New(libraryPath, libraryPath)
	done := make(chan cleanupOutcome, 1)

	go func() {
		removed, err := cache.CleanupStale(ctx, store, lib)
		done <- cleanupOutcome{removed: removed, err: err}
	}()

	return done
}

func (c *ResultsCommander) render(records []screenshot.ResultRecord) {
	if len(records) == 0 {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No results yet. Sort something first: screensort run"))
		return
	}

	fmt.Print(c.renderSummaryMarkdown(records))

	for _, rec := range records {
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
			cliui.ValueStyle.Render(utils.Truncate(label, 72)),
		)

		if rec.Link != "" {
			fmt.Printf("    %s\n", cliui.DimStyle.Render(rec.Link))
		}
	}
	fmt.Println()
}

// renderSummaryMarkdown builds the batch header through glamour, falling
// back to the raw markdown when the terminal renderer is unavailable.
func (c *ResultsCommander) renderSummaryMarkdown(records []screenshot.ResultRecord) string {
	var succeeded, flagged, failed int
	byType := make(map[screenshot.ContentType]int)

	for _, rec := range records {
		byType[rec.ContentType]++
		switch rec.Status {
		case screenshot.StatusSuccess:
			succeeded++
		case screenshot.StatusFlagged:
			flagged++
		case screenshot.StatusFailed:
			failed++
		}
	}

	breakdown := make([]string, 0, len(byType))
	for _, ct := range screenshot.ContentTypes() {
		if n := byType[ct]; n > 0 {
			breakdown = append(breakdown, fmt.Sprintf("%d %s", n, ct))
		}
	}

	md := fmt.Sprintf(
		"# Last batch\n\n**%s**: %d sorted, %d flagged, %d failed (%s).\n",
		utils.Pluralize(len(records), "screenshot"),
		succeeded, flagged, failed,
		strings.Join(breakdown, ", "),
	)

	rendered, err := cliui.RenderMarkdown(md)
	if err != nil {
		return md + "\n"
	}
	return rendered
}
