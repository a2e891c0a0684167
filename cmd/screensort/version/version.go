// Package versioncmder
package versioncmder

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/mitgor/screensort/pkg/utils"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Long:  "Show the version, commit, and build time of this screensort binary.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Printf("screensort %s\n", utils.Version)
			fmt.Printf("  commit: %s\n", utils.Sha)
			fmt.Printf("  built:  %s\n", utils.Buildtime)
			fmt.Printf("  go:     %s\n", runtime.Version())
			return nil
		},
	}
}
