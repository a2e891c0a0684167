// Package configcmder provides the config command for managing persistent
// screensort configuration stored in the .screensort/ directory.
package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mitgor/screensort/pkg/cliui"
	"github.com/mitgor/screensort/pkg/config"
)

const configLongDesc string = `Manage persistent screensort configuration.

Configuration is stored as config.toml in the .screensort/ directory and
provides default values for command flags. CLI flags always take
precedence over config file values, and SCREENSORT_* environment
variables sit between the two.

Keys use dotted notation matching the TOML section structure:
  library.path, library.destination_root,
  cache.backend, cache.sqlite_path, cache.postgres_dsn,
  model.provider, model.model, model.base_url, model.confidence_threshold,
  vision.endpoint,
  enrich.playlist_name, enrich.playlist_endpoint, enrich.journal_endpoint,
  event_stream.provider, event_stream.brokers, event_stream.topic,
  watch.debounce_ms, watch.metrics_listen

Use subcommands to get, set, or list configuration values:
  screensort config set <key> <value>    Set a configuration value
  screensort config get <key>            Get a configuration value
  screensort config list                 List all configuration values

Examples:
  screensort config set model.provider anthropic
  screensort config set library.path ~/Pictures/Screenshots
  screensort config get model.provider
  screensort config list`

const configShortDesc string = "Manage persistent screensort configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// openConfiger resolves the Configer for the command's --config-dir and
// prints which config file (if any) backs it.
func openConfiger(cmd *cobra.Command) (*config.Configer, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if target := cfger.GetTarget(); target != "" {
		fmt.Printf("\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}

	return cfger, nil
}

// requireValidKey rejects keys outside the registry with the full list.
func requireValidKey(key string) error {
	if config.IsValidConfigKey(key) {
		return nil
	}
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

// completeKeys offers the registry keys for the first positional arg.
func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
}
