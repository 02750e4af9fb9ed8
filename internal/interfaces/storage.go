package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/tickerchat/internal/models"
)

// AnalysisListOptions filters ListAnalyses
type AnalysisListOptions struct {
	Status models.AnalysisStatus
	Limit  int
	Offset int
}

// AnalysisStorage persists analysis records
type AnalysisStorage interface {
	SaveAnalysis(ctx context.Context, record *models.AnalysisRecord) error
	GetAnalysis(ctx context.Context, id string) (*models.AnalysisRecord, error)
	ListAnalyses(ctx context.Context, opts *AnalysisListOptions) ([]*models.AnalysisRecord, error)
	UpdateAnalysisProgress(ctx context.Context, id string, progress float64, step string) error
	DeleteAnalysis(ctx context.Context, id string) error
	CountAnalyses(ctx context.Context) (int, error)

	// DeleteAnalysesBefore removes final records last updated before cutoff.
	DeleteAnalysesBefore(ctx context.Context, cutoff time.Time) (int, error)
}
