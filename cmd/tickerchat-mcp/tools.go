package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createResolveTickersTool returns the resolve_tickers tool definition
func createResolveTickersTool() mcp.Tool {
	return mcp.NewTool("resolve_tickers",
		mcp.WithDescription("Find stock tickers mentioned in free text without running any analysis"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text mentioning companies or tickers, e.g. 'Compare Apple and MSFT'"),
		),
	)
}

// createResearchStocksTool returns the research_stocks tool definition
func createResearchStocksTool() mcp.Tool {
	return mcp.NewTool("research_stocks",
		mcp.WithDescription("Research the stocks named in a query. Misspelled names trigger a confirmation question; answer it by calling again with conversation_id and answer."),
		mcp.WithString("query",
			mcp.Description("Research request, e.g. 'Analyze Microsoft and Amazon'"),
		),
		mcp.WithString("conversation_id",
			mcp.Description("Conversation ID returned with a confirmation question"),
		),
		mcp.WithString("answer",
			mcp.Description("Reply to the confirmation question: yes, no, a replacement name, or skip"),
		),
	)
}

// createGetAnalysisTool returns the get_analysis tool definition
func createGetAnalysisTool() mcp.Tool {
	return mcp.NewTool("get_analysis",
		mcp.WithDescription("Retrieve a stored analysis as a markdown report"),
		mcp.WithString("analysis_id",
			mcp.Required(),
			mcp.Description("Analysis ID (format: ana_{uuid})"),
		),
	)
}

// createListAnalysesTool returns the list_analyses tool definition
func createListAnalysesTool() mcp.Tool {
	return mcp.NewTool("list_analyses",
		mcp.WithDescription("List recent analyses, newest first"),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10, max: 100)"),
		),
		mcp.WithString("status",
			mcp.Description("Filter: processing, completed, failed, cancelled"),
		),
	)
}
