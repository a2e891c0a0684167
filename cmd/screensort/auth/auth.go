// Package authcmder provides the auth command for storing API credentials.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mitgor/screensort/pkg/cliui"
	"github.com/mitgor/screensort/pkg/credentials"
)

const authLongDesc string = `Store API credentials for model and lookup providers.

Credentials are stored in credentials.toml in the .screensort/ directory
and resolved automatically when sorting. Environment variables with the
matching name take precedence over the stored key.

Model providers (openai, anthropic) unlock model-backed classification
and extraction; without one, sorting falls back to keyword matching.
The tmdb key enables movie metadata lookups.

Supported providers: openai, anthropic, tmdb

Examples:
  screensort auth openai               Prompt for OpenAI API key
  screensort auth tmdb                 Prompt for TMDb API key
  screensort auth --list               List stored credentials
  screensort auth --remove openai      Remove stored OpenAI credentials
  echo $KEY | screensort auth openai   Pipe API key from stdin`

const authShortDesc string = "Store API credentials"

type AuthCommander struct {
	configDir string
	list      bool
	remove    string
}

func NewAuthCmd() *cobra.Command {
	cmder := &AuthCommander{}

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			switch {
			case cmder.list:
				return cmder.runList()
			case cmder.remove != "":
				return cmder.runRemove(cmder.remove)
			case len(args) == 1:
				return cmder.runStore(args[0])
			default:
				return fmt.Errorf("provider argument required\n\nSupported providers: %s",
					strings.Join(credentials.SupportedProviders(), ", "))
			}
		},
		ValidArgsFunction: completeProviders,
	}

	cmd.Flags().BoolVar(&cmder.list, "list", false, "List stored credentials")
	cmd.Flags().StringVar(&cmder.remove, "remove", "", "Remove stored credentials for a provider")

	return cmd
}

func completeProviders(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
}

func (c *AuthCommander) manager() (*credentials.Manager, error) {
	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	return mgr, nil
}

func (c *AuthCommander) runStore(provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !credentials.IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}

	key, err := readAPIKey(provider)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key cannot be empty")
	}

	mgr, err := c.manager()
	if err != nil {
		return err
	}
	if err := mgr.SetKey(provider, key); err != nil {
		return err
	}

	fmt.Printf("\n  %s Stored %s credentials %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(provider),
		cliui.DimStyle.Render("(or set "+credentials.EnvVarForProvider(provider)+")"),
	)
	if provider == "tmdb" {
		fmt.Printf("    %s\n", cliui.DimStyle.Render("Movie screenshots will now get year and director lookups."))
	}
	fmt.Println()

	return nil
}

func (c *AuthCommander) runList() error {
	mgr, err := c.manager()
	if err != nil {
		return err
	}

	providers, err := mgr.ListProviders()
	if err != nil {
		return err
	}

	if len(providers) == 0 {
		fmt.Printf("\n  %s\n", cliui.DimStyle.Render("No stored credentials."))
		fmt.Printf("  Store one with 'screensort auth <provider>'. Supported: %s\n\n",
			strings.Join(credentials.SupportedProviders(), ", "))
		return nil
	}

	fmt.Printf("\n  %s\n\n", cliui.HeaderStyle.Render("Stored credentials"))
	for _, p := range providers {
		line := fmt.Sprintf("  %s  %s", cliui.SuccessMark, cliui.NameStyle.Render(p))
		if envVar := credentials.EnvVarForProvider(p); envVar != "" {
			line += "  " + cliui.DimStyle.Render("overridable via "+envVar)
		}
		fmt.Println(line)
	}
	fmt.Println()

	return nil
}

func (c *AuthCommander) runRemove(provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	mgr, err := c.manager()
	if err != nil {
		return err
	}
	if err := mgr.RemoveKey(provider); err != nil {
		return err
	}

	fmt.Printf("\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(provider))

	return nil
}

// readAPIKey reads the key from a pipe when stdin is redirected, and
// prompts with hidden input on a terminal otherwise.
func readAPIKey(provider string) (string, error) {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("checking stdin: %w", err)
	}

	if fi.Mode()&os.ModeCharDevice == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return "", errors.New("no input received on stdin")
	}

	fmt.Printf("Enter API key for %s (%s): ", provider, credentials.EnvVarForProvider(provider))
	keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("reading API key: %w", err)
	}

	return string(keyBytes), nil
}
