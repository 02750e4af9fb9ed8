package models

import "time"

// AnalysisStatus is the lifecycle status of a persisted analysis
type AnalysisStatus string

const (
	AnalysisProcessing AnalysisStatus = "processing"
	AnalysisCompleted  AnalysisStatus = "completed"
	AnalysisFailed     AnalysisStatus = "failed"
	AnalysisCancelled  AnalysisStatus = "cancelled"
)

// IsFinal reports whether no further progress updates are expected.
func (s AnalysisStatus) IsFinal() bool {
	return s == AnalysisCompleted || s == AnalysisFailed || s == AnalysisCancelled
}

// AnalysisRecord is the persisted form of one orchestrator run
type AnalysisRecord struct {
	ID             string               `json:"id"`
	ConversationID string               `json:"conversation_id,omitempty"`
	Query          string               `json:"query"`
	Tickers        []string             `json:"tickers"`
	Status         AnalysisStatus       `json:"status" badgerhold:"index"`
	Progress       float64              `json:"progress"`
	CurrentStep    string               `json:"current_step,omitempty"`
	Result         *OrchestrationResult `json:"result,omitempty"`
	Error          string               `json:"error,omitempty"`
	StartedAt      time.Time            `json:"started_at"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
	UpdatedAt      time.Time            `json:"updated_at"`
}
