// Package cleanupcmder provides the cleanup command that prunes cache
// entries for deleted screenshots.
package cleanupcmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mitgor/screensort/cmd/screensort/cachestore"
	"github.com/mitgor/screensort/cmd/screensort/librarypath"
	"github.com/mitgor/screensort/pkg/cache"
	"github.com/mitgor/screensort/pkg/cliui"
	"github.com/mitgor/screensort/pkg/config"
	"github.com/mitgor/screensort/pkg/library/fs"
	"github.com/mitgor/screensort/pkg/logger"
	"github.com/mitgor/screensort/pkg/utils"
)

const cleanupLongDesc string = `Remove cache entries for screenshots that no longer exist.

The processed set and stored results are checked against the library;
entries whose screenshots have been deleted are pruned. The results
command does the same thing in the background, so running this by hand
is only needed to reclaim space immediately.

Examples:
  screensort cleanup
  screensort cleanup --library ~/Pictures/Screenshots`

const cleanupShortDesc string = "Prune stale cache entries"

type CleanupCommander struct {
	debug     bool
	configDir string

	library      string
	cacheBackend string
	sqlitePath   string
	postgresDSN  string

	logger *slog.Logger
}

func NewCleanupCmd() *cobra.Command {
	cmder := &CleanupCommander{}

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: cleanupShortDesc,
		Long:  cleanupLongDesc,
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

func cleanupBindKeys() []string {
	return []string{
		config.FlagLibrary,
		config.FlagCacheBackend, config.FlagSQLite, config.FlagPostgresDSN,
	}
}

func (c *CleanupCommander) resolveConfig(cmd *cobra.Command) error {
	v, err := config.InitViper(c.configDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.DefaultFlagSet(), cleanupBindKeys())

	c.library = v.GetString("library.path")
	c.cacheBackend = v.GetString("cache.backend")
	c.sqlitePath = v.GetString("cache.sqlite_path")
	c.postgresDSN = v.GetString("cache.postgres_dsn")

	return nil
}

func (c *CleanupCommander) run(ctx context.Context) error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	libraryPath, err := librarypath.Resolve(c.library)
	if err != nil {
		return err
	}
	lib := fs.New(libraryPath, libraryPath)

	store, err := cachestore.Open(ctx, c.cacheBackend, c.sqlitePath, c.postgresDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println()

	var removed []string
	if err := cliui.Step(os.Stdout, "Checking cache against library", func() error {
		var stepErr error
		removed, stepErr = cache.CleanupStale(ctx, store, lib)
		return stepErr
	}); err != nil {
		return fmt.Errorf("cleaning up cache: %w", err)
	}

	if len(removed) == 0 {
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Nothing stale. Cache matches the library."))
		return nil
	}

	fmt.Printf("  %s Removed %s.\n\n",
		cliui.SuccessMark,
		utils.Pluralize(len(removed), "stale record"),
	)

	if c.debug {
		for _, id := range removed {
			fmt.Printf("    %s\n", cliui.DimStyle.Render(id))
		}
		fmt.Println()
	}

	return nil
}
