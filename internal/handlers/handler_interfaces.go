package handlers

import (
	"context"

	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
	"github.com/ternarybob/tickerchat/internal/services/research"
)

// Researcher handles research requests and owns analysis runs.
type Researcher interface {
	Handle(ctx context.Context, req research.Request) (*research.Response, error)
	GetAnalysis(ctx context.Context, id string) (*models.AnalysisRecord, error)
	ListAnalyses(ctx context.Context, opts *interfaces.AnalysisListOptions) ([]*models.AnalysisRecord, error)
	CancelAnalysis(ctx context.Context, id string) error
	IsRunning(id string) bool
}

// ConversationReader reads conversation state without mutating it.
type ConversationReader interface {
	Get(ctx context.Context, id string) (*models.Conversation, error)
}

// ReportRenderer renders analysis reports.
type ReportRenderer interface {
	Markdown(record *models.AnalysisRecord) string
	HTML(record *models.AnalysisRecord) ([]byte, error)
	PDF(record *models.AnalysisRecord) ([]byte, error)
}
