package correction

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/common"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
	"github.com/ternarybob/tickerchat/internal/resolver"
)

// New selects a gateway from the [correction] config section:
// the LLM oracle when enabled and a key is present, optionally chained with
// local suggestions; local suggestions alone; or a disabled gateway.
func New(config *common.Config, generator interfaces.ContentGenerator, r *resolver.Resolver, logger arbor.ILogger) interfaces.CorrectionGateway {
	useLLM := config.Correction.Enabled && generator != nil && generator.Available()
	timeout := common.ParseDurationOr(config.Correction.Timeout, 0)

	var gateway interfaces.CorrectionGateway
	switch {
	case useLLM && config.Correction.LocalFallback:
		gateway = NewChainGateway(logger,
			NewLLMGateway(generator, config.Correction.Model, timeout, logger),
			NewLocalGateway(r),
		)
	case useLLM:
		gateway = NewLLMGateway(generator, config.Correction.Model, timeout, logger)
	case config.Correction.LocalFallback:
		gateway = NewLocalGateway(r)
	default:
		gateway = DisabledGateway{}
	}

	logger.Info().Str("gateway", gateway.Name()).Msg("Correction gateway selected")
	return gateway
}

// DisabledGateway always reports itself unavailable, sending every
// unresolved token to clarification.
type DisabledGateway struct{}

func (DisabledGateway) Name() string { return "disabled" }

func (DisabledGateway) ProposeCorrections(ctx context.Context, tokens []string, queryContext string) ([]models.CorrectionCandidate, error) {
	return nil, interfaces.ErrGatewayUnavailable
}
