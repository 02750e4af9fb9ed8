package interfaces

import (
	"errors"
	"fmt"
)

// Resolution and orchestration errors. Callers test with errors.Is; wrapping
// with fmt.Errorf("...: %w", err) preserves the category.
var (
	// ErrUnresolvedInput means no ticker could be derived from the request.
	// It is surfaced to the user as a clarification prompt.
	ErrUnresolvedInput = errors.New("no tickers could be resolved from input")

	// ErrGatewayUnavailable is returned by correction gateways that cannot
	// answer. The confirmation flow treats it as "no corrections found".
	ErrGatewayUnavailable = errors.New("correction gateway unavailable")

	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationExpired  = errors.New("conversation expired, please start over")

	// ErrConversationResolved is returned when mutating a conversation that
	// already reached its final ticker set.
	ErrConversationResolved = errors.New("conversation already resolved")

	// ErrConversationConflict means the answer was given to a question the
	// conversation has already moved past.
	ErrConversationConflict = errors.New("conversation changed, answer the current question")

	// ErrPipelineFailure marks a per-ticker pipeline error. It never fails
	// the batch.
	ErrPipelineFailure = errors.New("analysis pipeline failed")

	// ErrPipelineTimeout wraps ErrPipelineFailure.
	ErrPipelineTimeout = fmt.Errorf("analysis pipeline timed out: %w", ErrPipelineFailure)

	// ErrMalformedInsight is returned by pipelines whose synthesis output
	// cannot be decoded. It wraps ErrPipelineFailure.
	ErrMalformedInsight = fmt.Errorf("analysis pipeline returned malformed output: %w", ErrPipelineFailure)

	// ErrStoreUnavailable is the only fatal condition: conversation state
	// can be neither read nor written. Retryable.
	ErrStoreUnavailable = errors.New("conversation store unavailable")

	ErrAnalysisNotFound = errors.New("analysis not found")
)

// ErrInvalidRequest marks input rejected before any resolution work.
var ErrInvalidRequest = errors.New("invalid request")
