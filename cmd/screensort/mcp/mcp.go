// Package mcpcmder provides the mcp command that serves sorting results
// over the Model Context Protocol.
package mcpcmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpapi "github.com/mitgor/screensort/api/mcp"
	"github.com/mitgor/screensort/cmd/screensort/cachestore"
	"github.com/mitgor/screensort/cmd/screensort/librarypath"
	"github.com/mitgor/screensort/pkg/config"
	"github.com/mitgor/screensort/pkg/library"
	"github.com/mitgor/screensort/pkg/library/fs"
	"github.com/mitgor/screensort/pkg/logger"
)

const mcpLongDesc string = `Serve sorting results over the Model Context Protocol.

Starts a streamable HTTP MCP server exposing two tools:
  search_results   Search stored results by text, type, or status
  library_stats    Pending, processed, and per-type counts

library_stats needs a resolvable screenshot library; without one the
server still runs with search_results only.

Examples:
  screensort mcp
  screensort mcp --listen :8091`

const mcpShortDesc string = "Serve results over MCP"

type MCPCommander struct {
	debug     bool
	configDir string

	listen string

	library      string
	cacheBackend string
	sqlitePath   string
	postgresDSN  string

	logger *slog.Logger
}

func NewMCPCmd() *cobra.Command {
	cmder := &MCPCommander{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: mcpShortDesc,
		Long:  mcpLongDesc,
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

	cmd.Flags().StringVar(&cmder.listen, "listen", "localhost:8091", "Address for the MCP server to listen on")

	fs := config.DefaultFlagSet()
	config.AddStringFlag(cmd, fs, config.FlagLibrary, &cmder.library)
	config.AddStringFlag(cmd, fs, config.FlagCacheBackend, &cmder.cacheBackend)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgresDSN, &cmder.postgresDSN)

	return cmd
}

func mcpBindKeys() []string {
	return []string{
		config.FlagLibrary,
		config.FlagCacheBackend, config.FlagSQLite, config.FlagPostgresDSN,
	}
}

func (c *MCPCommander) resolveConfig(cmd *cobra.Command) error {
	v, err := config.InitViper(c.configDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.DefaultFlagSet(), mcpBindKeys())

	c.library = v.GetString("library.path")
	c.cacheBackend = v.GetString("cache.backend")
	c.sqlitePath = v.GetString("cache.sqlite_path")
	c.postgresDSN = v.GetString("cache.postgres_dsn")

	return nil
}

func (c *MCPCommander) run(ctx context.Context) error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	store, err := cachestore.Open(ctx, c.cacheBackend, c.sqlitePath, c.postgresDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	server, err := mcpapi.NewServer(mcpapi.Config{
		Store:   store,
		Library: c.resolveLibrary(),
		Logger:  c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	httpServer := &http.Server{
		Addr:    c.listen,
		Handler: server.Handler(),
	}

	c.logger.Info("starting MCP server", "addr", c.listen)

	// Channel to capture errors from goroutines
	errChan := make(chan error, 1)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// resolveLibrary returns the screenshot library when one can be found,
// nil otherwise. The server downgrades to search-only without it.
func (c *MCPCommander) resolveLibrary() library.Library {
	libraryPath, err := librarypath.Resolve(c.library)
	if err != nil {
		c.logger.Warn("no library found, serving without library_stats", "error", err)
		return nil
	}
	return fs.New(libraryPath, libraryPath)
}
