package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mitgor/screensort/pkg/cliui"
)

const getLongDesc string = `Get a configuration value.

Reads one key from config.toml in the .screensort/ directory. Keys that
have never been set print <not set>; sorting falls back to built-in
defaults for those.

Examples:
  screensort config get model.provider
  screensort config get library.path`

const getShortDesc string = "Get a configuration value"

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: getShortDesc,
		Long:  getLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, args[0])
		},
		ValidArgsFunction: completeKeys,
	}
}

func runGet(cmd *cobra.Command, key string) error {
	if err := requireValidKey(key); err != nil {
		return err
	}

	cfger, err := openConfiger(cmd)
	if err != nil {
		return err
	}

	value, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}

	rendered := cliui.DimStyle.Render("<not set>")
	if value != "" {
		rendered = cliui.ValueStyle.Render(value)
	}
	fmt.Printf("  %s  %s\n\n", cliui.KeyStyle.Render(key), rendered)

	return nil
}
