package interfaces

import (
	"context"

	"github.com/ternarybob/tickerchat/internal/models"
)

// CorrectionGateway proposes spelling fixes for tokens the resolver could not
// match. Implementations must be stateless and safe for concurrent use.
// Any error is treated by callers as an empty result.
type CorrectionGateway interface {
	// ProposeCorrections returns at most one candidate per token. queryContext
	// is the full user query, passed along to help disambiguation.
	ProposeCorrections(ctx context.Context, tokens []string, queryContext string) ([]models.CorrectionCandidate, error)

	// Name identifies the gateway in logs.
	Name() string
}
