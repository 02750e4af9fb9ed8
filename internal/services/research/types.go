package research

import (
	"github.com/ternarybob/tickerchat/internal/confirmation"
	"github.com/ternarybob/tickerchat/internal/models"
)

// Request is one inbound research call. A request carrying the id of an
// active conversation is an answer to its pending question; anything else
// starts a fresh resolution of Query.
type Request struct {
	Query              string `json:"query" validate:"max=2000"`
	ConversationID     string `json:"conversation_id,omitempty" validate:"omitempty,max=64"`
	ConfirmationAnswer string `json:"confirmation_answer,omitempty" validate:"max=500"`
	// Async returns as soon as the analysis is recorded; poll AnalysisID.
	Async bool `json:"async,omitempty"`
}

// Response is either a pending question (NeedsConfirmation) or the
// aggregated results.
type Response struct {
	NeedsConfirmation bool                        `json:"needs_confirmation"`
	Question          string                      `json:"question,omitempty"`
	QuestionKind      confirmation.StepKind       `json:"question_kind,omitempty"`
	ConversationID    string                      `json:"conversation_id,omitempty"`
	Tickers           []string                    `json:"tickers,omitempty"`
	Results           *models.OrchestrationResult `json:"results,omitempty"`
	AnalysisID        string                      `json:"analysis_id,omitempty"`
	Status            models.AnalysisStatus       `json:"status,omitempty"`
	// Message carries user-facing guidance when nothing could be resolved.
	Message string `json:"message,omitempty"`
}

const (
	noTickersMessage  = "I couldn't identify any companies in your request. Please name a company or ticker, for example 'Analyze AAPL' or 'Compare Microsoft and Google'."
	emptyFinalMessage = "No companies were confirmed, so there is nothing to analyze. Please start a new request naming a company or ticker."
)
