package models

import (
	"strings"
	"time"
)

// ConversationState is the position of a conversation in the confirmation dialogue
type ConversationState string

const (
	StateAwaitingConfirmation  ConversationState = "awaiting_confirmation"
	StateAwaitingClarification ConversationState = "awaiting_clarification"
	StateResolved              ConversationState = "resolved"
	StateExpired               ConversationState = "expired"
)

// IsTerminal reports whether the state accepts no further answers.
func (s ConversationState) IsTerminal() bool {
	return s == StateResolved || s == StateExpired
}

// ConfidenceTier grades a proposed correction
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
)

// ParseConfidenceTier maps free text to a tier, defaulting to medium.
func ParseConfidenceTier(s string) ConfidenceTier {
	switch ConfidenceTier(strings.ToLower(strings.TrimSpace(s))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceLow:
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}

// CorrectionCandidate is a proposed fix for one misspelled or ambiguous token
type CorrectionCandidate struct {
	OriginalToken   string         `json:"original_token"`
	CandidateName   string         `json:"candidate_name"`
	CandidateTicker string         `json:"candidate_ticker"`
	Confidence      ConfidenceTier `json:"confidence"`
}

// Conversation tracks one multi-request confirmation dialogue
type Conversation struct {
	ID            string            `json:"id"`
	State         ConversationState `json:"state"`
	OriginalQuery string            `json:"original_query"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	ExpiresAt     time.Time         `json:"expires_at"`

	PendingCorrections []CorrectionCandidate `json:"pending_corrections"`
	ConfirmedTickers   []string              `json:"confirmed_tickers"`

	// ClarificationToken is the token the current clarification question is about.
	ClarificationToken string `json:"clarification_token,omitempty"`
	// ClarificationQueue holds further tokens awaiting clarification.
	ClarificationQueue []string `json:"clarification_queue,omitempty"`

	UnrecognizedStreak int      `json:"unrecognized_streak"`
	QuestionsAsked     int      `json:"questions_asked"`
	LastQuestion       string   `json:"last_question,omitempty"`
	Answers            []string `json:"answers,omitempty"`

	// FinalTickers is set once the conversation reaches StateResolved.
	FinalTickers []string `json:"final_tickers,omitempty"`
}

// IsExpired reports whether the conversation lifetime has passed at now.
func (c *Conversation) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Confirm appends ticker to ConfirmedTickers unless already present.
func (c *Conversation) Confirm(tickers ...string) {
	for _, ticker := range tickers {
		if !containsString(c.ConfirmedTickers, ticker) {
			c.ConfirmedTickers = append(c.ConfirmedTickers, ticker)
		}
	}
}

// Clone returns a deep copy so callers never share slices with the store.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	clone := *c
	clone.PendingCorrections = append([]CorrectionCandidate(nil), c.PendingCorrections...)
	clone.ConfirmedTickers = append([]string(nil), c.ConfirmedTickers...)
	clone.ClarificationQueue = append([]string(nil), c.ClarificationQueue...)
	clone.Answers = append([]string(nil), c.Answers...)
	clone.FinalTickers = append([]string(nil), c.FinalTickers...)
	return &clone
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
