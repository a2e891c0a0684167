// Package statuscmder provides the status command for a quick look at
// the cache and library state.
package statuscmder

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mitgor/screensort/cmd/screensort/cachestore"
	"github.com/mitgor/screensort/cmd/screensort/librarypath"
	"github.com/mitgor/screensort/pkg/cliui"
	"github.com/mitgor/screensort/pkg/config"
	"github.com/mitgor/screensort/pkg/library/fs"
	"github.com/mitgor/screensort/pkg/logger"
	"github.com/mitgor/screensort/pkg/screenshot"
)

const statusLongDesc string = `Show the cache and library state.

Displays where the cache lives, how many screenshots have been
processed, how many are waiting, and what the last batch did.

Examples:
  screensort status`

const statusShortDesc string = "Show cache and library state"

type StatusCommander struct {
	debug     bool
	configDir string

	library      string
	cacheBackend string
	sqlitePath   string
	postgresDSN  string

	logger *slog.Logger
}

func NewStatusCmd() *cobra.Command {
	cmder := &StatusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
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

func statusBindKeys() []string {
	return []string{
		config.FlagLibrary,
		config.FlagCacheBackend, config.FlagSQLite, config.FlagPostgresDSN,
	}
}

func (c *StatusCommander) resolveConfig(cmd *cobra.Command) error {
	v, err := config.InitViper(c.configDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.DefaultFlagSet(), statusBindKeys())

	c.library = v.GetString("library.path")
	c.cacheBackend = v.GetString("cache.backend")
	c.sqlitePath = v.GetString("cache.sqlite_path")
	c.postgresDSN = v.GetString("cache.postgres_dsn")

	return nil
}

func (c *StatusCommander) run(ctx context.Context) error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	store, err := cachestore.Open(ctx, c.cacheBackend, c.sqlitePath, c.postgresDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	processed, err := store.LoadProcessedSet(ctx)
	if err != nil {
		return fmt.Errorf("loading processed set: %w", err)
	}

	records, err := store.LoadResults(ctx)
	if err != nil {
		return fmt.Errorf("loading results: %w", err)
	}

	fmt.Printf("\n  %s  %s\n",
		cliui.KeyStyle.Render("Cache:     "),
		c.renderCacheLocation(),
	)
	fmt.Printf("  %s  %s\n",
		cliui.KeyStyle.Render("Processed: "),
		cliui.NameStyle.Render(strconv.Itoa(len(processed))),
	)
	fmt.Printf("  %s  %s\n",
		cliui.KeyStyle.Render("Pending:   "),
		c.renderPending(ctx, processed),
	)
	fmt.Printf("  %s  %s\n\n",
		cliui.KeyStyle.Render("Last batch:"),
		renderLastBatch(records),
	)

	return nil
}

func (c *StatusCommander) renderCacheLocation() string {
	switch c.cacheBackend {
	case "postgres":
		return cliui.ValueStyle.Render("postgres")
	default:
		path, err := cachestore.ResolveSQLitePath(c.sqlitePath)
		if err != nil {
			return cliui.DimStyle.Render("sqlite (unresolved)")
		}
		return fmt.Sprintf("%s %s",
			cliui.ValueStyle.Render("sqlite"),
			cliui.DimStyle.Render(path),
		)
	}
}

func (c *StatusCommander) renderPending(ctx context.Context, processed map[string]bool) string {
	libraryPath, err := librarypath.Resolve(c.library)
	if err != nil {
		c.logger.Debug("no library for pending count", "error", err)
		return cliui.DimStyle.Render("library not found")
	}

	shots, err := fs.New(libraryPath, libraryPath).List(ctx)
	if err != nil {
		c.logger.Debug("could not list library", "error", err)
		return cliui.DimStyle.Render("library unreadable")
	}

	pending := 0
	for _, shot := range shots {
		if !processed[shot.ID] {
			pending++
		}
	}

	return cliui.NameStyle.Render(strconv.Itoa(pending))
}

func renderLastBatch(records []screenshot.ResultRecord) string {
	if len(records) == 0 {
		return cliui.DimStyle.Render("none yet")
	}

	var succeeded, flagged, failed int
	last := records[0].CreatedAt
	for _, rec := range records {
		if rec.CreatedAt.After(last) {
			last = rec.CreatedAt
		}
		switch rec.Status {
		case screenshot.StatusSuccess:
			succeeded++
		case screenshot.StatusFlagged:
			flagged++
		case screenshot.StatusFailed:
			failed++
		}
	}

	return fmt.Sprintf("%s %s",
		cliui.ValueStyle.Render(fmt.Sprintf("%d sorted, %d flagged, %d failed", succeeded, flagged, failed)),
		cliui.DimStyle.Render("("+last.Local().Format("Jan 2 15:04")+")"),
	)
}
