package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mitgor/screensort/pkg/screenshot"
)

var (
	searchResultsToolName    = "search_results"
	searchResultsDescription = "Search over processed screenshot results. Matches the query against extracted titles, creators, and status messages, with optional content-type and status filters. Returns the matching result records from the most recent batches."
)

// SearchResultsInput represents the input arguments for the search_results tool.
type SearchResultsInput struct {
	Query       string `json:"query,omitempty" jsonschema:"text to match against result titles, creators, and messages; empty matches everything"`
	ContentType string `json:"content_type,omitempty" jsonschema:"restrict to one content type: music, movie, book, meme, or unknown"`
	Status      string `json:"status,omitempty" jsonschema:"restrict to one status: success, flagged, or failed"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default: 10)"`
}

// SearchResultsOutput represents the output of the search_results tool.
type SearchResultsOutput struct {
	Query   string                    `json:"query"`
	Results []screenshot.ResultRecord `json:"results"`
	Count   int                       `json:"count"`
}

// handleSearchResults processes a search_results request.
func (s *Server) handleSearchResults(ctx context.Context, _ *mcp.CallToolRequest, input SearchResultsInput) (*mcp.CallToolResult, SearchResultsOutput, error) {
	logger := s.config.Logger

	// Default limit if not specified
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	logger.Debug("mcp search_results request",
		"query", input.Query,
		"contentType", input.ContentType,
		"status", input.Status,
		"limit", limit,
	)

	records, err := s.config.Store.LoadResults(ctx)
	if err != nil {
		logger.Error("loading results", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to load results: %v", err)},
			},
		}, SearchResultsOutput{}, nil
	}

	matches := filterResults(records, input, limit)

	output := SearchResultsOutput{
		Query:   input.Query,
		Results: matches,
		Count:   len(matches),
	}

	// Serialize the structured output as JSON for the text field
	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("marshaling search output", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, SearchResultsOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

// filterResults applies the query and filters to the stored records,
// newest first, capped at limit.
func filterResults(records []screenshot.ResultRecord, input SearchResultsInput, limit int) []screenshot.ResultRecord {
	query := strings.ToLower(strings.TrimSpace(input.Query))
	wantType := strings.ToLower(strings.TrimSpace(input.ContentType))
	wantStatus := strings.ToLower(strings.TrimSpace(input.Status))

	matches := make([]screenshot.ResultRecord, 0, limit)

	// Stored order is batch order; walk backwards so recent batches win.
	for i := len(records) - 1; i >= 0 && len(matches) < limit; i-- {
		rec := records[i]

		if wantType != "" && string(rec.ContentType) != wantType {
			continue
		}
		if wantStatus != "" && string(rec.Status) != wantStatus {
			continue
		}
		if query != "" && !matchesQuery(rec, query) {
			continue
		}

		matches = append(matches, rec)
	}

	return matches
}

// matchesQuery reports whether the lowercased query appears in any of the
// record's searchable text fields.
func matchesQuery(rec screenshot.ResultRecord, query string) bool {
	for _, field := range []string{rec.Title, rec.Creator, rec.Message} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}
