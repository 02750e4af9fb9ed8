package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
	"github.com/ternarybob/tickerchat/internal/resolver"
	"github.com/ternarybob/tickerchat/internal/services/research"
)

// researcher is the part of the research service the tools use
type researcher interface {
	Handle(ctx context.Context, req research.Request) (*research.Response, error)
	GetAnalysis(ctx context.Context, id string) (*models.AnalysisRecord, error)
	ListAnalyses(ctx context.Context, opts *interfaces.AnalysisListOptions) ([]*models.AnalysisRecord, error)
}

// markdownRenderer renders an analysis record as markdown
type markdownRenderer interface {
	Markdown(record *models.AnalysisRecord) string
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

// handleResolveTickers implements the resolve_tickers tool
func handleResolveTickers(r *resolver.Resolver) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return textResult("Error: query parameter is required"), nil
		}

		resolution := r.Resolve(query)
		suggestions := make(map[string][]resolver.Suggestion, len(resolution.Unresolved))
		for _, token := range resolution.Unresolved {
			suggestions[token] = r.Suggest(token, 3)
		}
		return textResult(formatResolution(resolution, suggestions)), nil
	}
}

// handleResearchStocks implements the research_stocks tool
func handleResearchStocks(svc researcher, reports markdownRenderer, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := research.Request{
			Query:              request.GetString("query", ""),
			ConversationID:     request.GetString("conversation_id", ""),
			ConfirmationAnswer: request.GetString("answer", ""),
		}

		resp, err := svc.Handle(ctx, req)
		if err != nil {
			logger.Warn().Err(err).Msg("Research request failed")
			return textResult(fmt.Sprintf("Research error: %v", err)), nil
		}

		if resp.AnalysisID != "" {
			record, err := svc.GetAnalysis(ctx, resp.AnalysisID)
			if err == nil {
				return textResult(reports.Markdown(record)), nil
			}
			logger.Warn().Err(err).Str("analysis_id", resp.AnalysisID).Msg("Failed to load analysis")
		}
		return textResult(formatResponse(resp)), nil
	}
}

// handleGetAnalysis implements the get_analysis tool
func handleGetAnalysis(svc researcher, reports markdownRenderer, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("analysis_id")
		if err != nil || id == "" {
			return textResult("Error: analysis_id parameter is required"), nil
		}

		record, err := svc.GetAnalysis(ctx, id)
		if err != nil {
			logger.Debug().Err(err).Str("analysis_id", id).Msg("Analysis lookup failed")
			return textResult(fmt.Sprintf("Error: %v", err)), nil
		}
		return textResult(reports.Markdown(record)), nil
	}
}

// handleListAnalyses implements the list_analyses tool
func handleListAnalyses(svc researcher, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 10)
		if limit <= 0 || limit > 100 {
			limit = 10
		}

		records, err := svc.ListAnalyses(ctx, &interfaces.AnalysisListOptions{
			Status: models.AnalysisStatus(request.GetString("status", "")),
			Limit:  limit,
		})
		if err != nil {
			logger.Error().Err(err).Msg("List analyses failed")
			return textResult(fmt.Sprintf("Error: %v", err)), nil
		}
		return textResult(formatAnalysisList(records)), nil
	}
}
