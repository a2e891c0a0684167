// Package screensortcmder
package screensortcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/mitgor/screensort/cmd/screensort/auth"
	cleanupcmder "github.com/mitgor/screensort/cmd/screensort/cleanup"
	configcmder "github.com/mitgor/screensort/cmd/screensort/config"
	initcmder "github.com/mitgor/screensort/cmd/screensort/init"
	mcpcmder "github.com/mitgor/screensort/cmd/screensort/mcp"
	resultscmder "github.com/mitgor/screensort/cmd/screensort/results"
	runcmder "github.com/mitgor/screensort/cmd/screensort/run"
	statuscmder "github.com/mitgor/screensort/cmd/screensort/status"
	versioncmder "github.com/mitgor/screensort/cmd/screensort/version"
	watchcmder "github.com/mitgor/screensort/cmd/screensort/watch"
)

const screensortLongDesc string = `Screensort files your screenshots where they belong.

Each screenshot is transcribed, classified as music, movie, book, or meme,
and moved into a per-type folder. Music screenshots additionally collect a
video link into a playlist and a journal entry when those services are
configured.

Sort everything that is pending:
  screensort run

Keep sorting as new screenshots arrive:
  screensort watch

See what the last batch did:
  screensort results`

const screensortShortDesc string = "Screensort - screenshot sorting"

func NewScreensortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screensort",
		Short: screensortShortDesc,
		Long:  screensortLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .screensort/ directory")

	// Add subcommands
	cmd.AddCommand(runcmder.NewRunCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(resultscmder.NewResultsCmd())
	cmd.AddCommand(cleanupcmder.NewCleanupCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(mcpcmder.NewMCPCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
