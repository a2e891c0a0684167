// Package mcp exposes processed screenshot results over the Model Context
// Protocol so agents can query a library without shelling out to the CLI.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mitgor/screensort/pkg/cache"
	"github.com/mitgor/screensort/pkg/library"
	"github.com/mitgor/screensort/pkg/utils"
)

type Config struct {
	// Store reads the processed set and result records for the
	// search_results tool.
	Store cache.Store

	// Library counts pending screenshots. Optional; when set the server
	// also registers the library_stats tool.
	Library library.Library

	// Noop builds a server with no tools registered.
	Noop bool

	// Logger is the configured slog logger.
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer builds the MCP server and registers its tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
		mcpServer: mcp.NewServer(
			&mcp.Implementation{Name: "screensort", Version: utils.Version},
			&mcp.ServerOptions{},
		),
	}

	// A noop server carries no tools and no handler.
	if c.Noop {
		return s, nil
	}

	if c.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	s.registerTools()

	// Stateless suits one-shot tool calls; no per-session state survives
	// between requests.
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return s.mcpServer },
		&mcp.StreamableHTTPOptions{Stateless: true},
	)

	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        searchResultsToolName,
		Description: searchResultsDescription,
	}, s.handleSearchResults)

	if s.config.Library != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        libraryStatsToolName,
			Description: libraryStatsDescription,
		}, s.handleLibraryStats)
	}
}

// Handler returns the streamable HTTP handler, or nil for a noop server.
func (s *Server) Handler() http.Handler {
	if s.handler == nil {
		return nil
	}
	return s.handler
}
