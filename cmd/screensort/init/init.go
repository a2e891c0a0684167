// Package initcmder provides the init command for initializing a local
// .screensort/ directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mitgor/screensort/pkg/cliui"
	"github.com/mitgor/screensort/pkg/config"
)

const (
	dirName    = ".screensort"
	configFile = "config.toml"
)

const initLongDesc string = `Initialize a new .screensort/ directory in the current working directory.

Creates a local .screensort/ directory that takes precedence over the
default ~/.screensort/ directory for configuration, credentials, and the
sqlite cache.

This is useful for keeping separate sorting state per screenshot folder.

With --preset, a starter config.toml is written for the named model
provider. Valid presets: openai, anthropic, ollama.

Examples:
  screensort init
  screensort init --preset ollama`

const initShortDesc string = "Initialize a local .screensort/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Write a starter config for a model provider (openai, anthropic, ollama)")

	return cmd
}

func runInit(preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	already := err == nil && info.IsDir()

	if !already {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .screensort directory: %w", err)
		}
	}

	if already {
		fmt.Printf("\n  %s Already initialized: %s\n", cliui.DimStyle.Render("●"), dir)
	} else {
		fmt.Printf("\n  %s Initialized .screensort directory: %s\n", cliui.SuccessMark, dir)
	}

	if preset == "" {
		fmt.Println()
		return nil
	}

	return writePreset(dir, preset)
}

func writePreset(dir, preset string) error {
	cfgPath := filepath.Join(dir, configFile)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists; change it with 'screensort config set'", cfgPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking for existing config: %w", err)
	}

	cfg, err := config.PresetConfig(preset)
	if err != nil {
		return fmt.Errorf("%w\n\nValid presets: %s", err, strings.Join(config.ValidPresetNames(), ", "))
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("preparing config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("  %s Wrote %s preset to %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(preset),
		cliui.DimStyle.Render(cfgPath),
	)

	return nil
}
