package interfaces

import (
	"context"

	"github.com/ternarybob/tickerchat/internal/models"
)

// AnalysisPipeline gathers data for one ticker and synthesises an insight.
// Run is called concurrently for different tickers; the per-run timeout is
// carried by ctx.
type AnalysisPipeline interface {
	Run(ctx context.Context, ticker string, query string) (*models.TickerInsight, error)
}

// AgentDescriptor describes one pipeline stage for the agents listing
type AgentDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// AgentLister is implemented by pipelines that can describe their stages.
type AgentLister interface {
	Agents() []AgentDescriptor
}
