package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	libraryStatsToolName    = "library_stats"
	libraryStatsDescription = "Report the current state of the screenshot library and the processing cache: how many screenshots are waiting to be sorted, how many have been processed, and result tallies broken down by content type and status."
)

// LibraryStatsInput represents the input arguments for the library_stats
// tool. The tool takes no arguments.
type LibraryStatsInput struct{}

// LibraryStatsOutput represents the structured output of a stats request.
type LibraryStatsOutput struct {
	Pending   int            `json:"pending"`
	Processed int            `json:"processed"`
	Results   int            `json:"results"`
	ByType    map[string]int `json:"by_type"`
	ByStatus  map[string]int `json:"by_status"`
}

// handleLibraryStats processes a library_stats request via MCP.
func (s *Server) handleLibraryStats(ctx context.Context, _ *mcp.CallToolRequest, _ LibraryStatsInput) (*mcp.CallToolResult, LibraryStatsOutput, error) {
	logger := s.config.Logger

	shots, err := s.config.Library.List(ctx)
	if err != nil {
		logger.Error("listing library", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to list library: %v", err)},
			},
		}, LibraryStatsOutput{}, nil
	}

	processed, err := s.config.Store.LoadProcessedSet(ctx)
	if err != nil {
		logger.Error("loading processed set", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to load processed set: %v", err)},
			},
		}, LibraryStatsOutput{}, nil
	}

	records, err := s.config.Store.LoadResults(ctx)
	if err != nil {
		logger.Error("loading results", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to load results: %v", err)},
			},
		}, LibraryStatsOutput{}, nil
	}

	pending := 0
	for _, shot := range shots {
		if !processed[shot.ID] {
			pending++
		}
	}

	output := LibraryStatsOutput{
		Pending:   pending,
		Processed: len(processed),
		Results:   len(records),
		ByType:    make(map[string]int),
		ByStatus:  make(map[string]int),
	}
	for _, rec := range records {
		output.ByType[string(rec.ContentType)]++
		output.ByStatus[string(rec.Status)]++
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("marshaling stats output", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize stats: %v", err)},
			},
		}, LibraryStatsOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
