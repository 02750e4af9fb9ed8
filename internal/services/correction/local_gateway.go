package correction

import (
	"context"

	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
	"github.com/ternarybob/tickerchat/internal/resolver"
)

// LocalGateway proposes corrections from the resolver's directory using
// close-match suggestions. It never fails.
type LocalGateway struct {
	resolver *resolver.Resolver
}

var _ interfaces.CorrectionGateway = (*LocalGateway)(nil)

func NewLocalGateway(r *resolver.Resolver) *LocalGateway {
	return &LocalGateway{resolver: r}
}

func (g *LocalGateway) Name() string { return "local" }

func (g *LocalGateway) ProposeCorrections(ctx context.Context, tokens []string, queryContext string) ([]models.CorrectionCandidate, error) {
	var candidates []models.CorrectionCandidate
	for _, token := range tokens {
		suggestions := g.resolver.Suggest(token, 1)
		if len(suggestions) == 0 {
			continue
		}
		best := suggestions[0]
		candidates = append(candidates, models.CorrectionCandidate{
			OriginalToken:   token,
			CandidateName:   best.Name,
			CandidateTicker: best.Ticker,
			Confidence:      TierForRatio(best.Ratio),
		})
	}
	return candidates, nil
}

// TierForRatio grades a similarity ratio.
func TierForRatio(ratio float64) models.ConfidenceTier {
	switch {
	case ratio >= 0.85:
		return models.ConfidenceHigh
	case ratio >= 0.7:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
