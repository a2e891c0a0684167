package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mitgor/screensort/pkg/cliui"
)

const setLongDesc string = `Set a configuration value.

Writes the given key into config.toml in the .screensort/ directory,
creating the file on first use. Values are parsed per key type, so
numeric keys like model.confidence_threshold reject non-numbers.

Examples:
  screensort config set model.provider anthropic
  screensort config set model.confidence_threshold 0.75
  screensort config set watch.debounce_ms 5000`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd, args[0], args[1])
		},
		ValidArgsFunction: completeKeys,
	}
}

func runSet(cmd *cobra.Command, key, value string) error {
	if err := requireValidKey(key); err != nil {
		return err
	}

	cfger, err := openConfiger(cmd)
	if err != nil {
		return err
	}

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	fmt.Printf("  %s Set %s = %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.ValueStyle.Render(value),
	)

	return nil
}
