package correction

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
)

// ChainGateway asks each gateway in turn about the tokens still uncovered by
// the previous ones.
type ChainGateway struct {
	gateways []interfaces.CorrectionGateway
	logger   arbor.ILogger
}

var _ interfaces.CorrectionGateway = (*ChainGateway)(nil)

func NewChainGateway(logger arbor.ILogger, gateways ...interfaces.CorrectionGateway) *ChainGateway {
	return &ChainGateway{gateways: gateways, logger: logger}
}

func (g *ChainGateway) Name() string {
	names := make([]string, len(g.gateways))
	for i, gw := range g.gateways {
		names[i] = gw.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// ProposeCorrections returns an error only when every gateway failed.
func (g *ChainGateway) ProposeCorrections(ctx context.Context, tokens []string, queryContext string) ([]models.CorrectionCandidate, error) {
	remaining := tokens
	var collected []models.CorrectionCandidate
	var lastErr error
	failures := 0

	for _, gw := range g.gateways {
		if len(remaining) == 0 {
			break
		}
		candidates, err := gw.ProposeCorrections(ctx, remaining, queryContext)
		if err != nil {
			failures++
			lastErr = err
			g.logger.Warn().
				Err(err).
				Str("gateway", gw.Name()).
				Msg("Correction gateway failed, trying next")
			continue
		}
		collected = append(collected, candidates...)
		remaining = uncovered(remaining, candidates)
	}

	if failures == len(g.gateways) && lastErr != nil {
		return nil, fmt.Errorf("all correction gateways failed: %w", lastErr)
	}
	return orderCandidates(tokens, collected), nil
}

func uncovered(tokens []string, candidates []models.CorrectionCandidate) []string {
	covered := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		covered[strings.ToLower(c.OriginalToken)] = true
	}
	var rest []string
	for _, t := range tokens {
		if !covered[strings.ToLower(t)] {
			rest = append(rest, t)
		}
	}
	return rest
}
