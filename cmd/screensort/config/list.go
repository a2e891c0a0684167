package configcmder

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mitgor/screensort/pkg/config"
)

const listLongDesc string = `List all configuration values.

Prints every configuration key with its current value from config.toml
in the .screensort/ directory. Plain output, one key per line, so it can
be grepped.

Examples:
  screensort config list`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, _ []string) error {
	cfger, err := openConfiger(cmd)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
	for _, key := range config.ValidConfigKeys() {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}

		if value == "" {
			fmt.Fprintf(w, "%s\t= <not set>\n", key)
		} else {
			fmt.Fprintf(w, "%s\t= %q\n", key, value)
		}
	}

	return w.Flush()
}
