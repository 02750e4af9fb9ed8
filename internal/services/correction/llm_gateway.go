// Package correction implements the correction gateways that propose fixes
// for tokens the resolver could not match.
package correction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/common"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
	"github.com/ternarybob/tickerchat/internal/services/llm"
)

const systemPrompt = `You are a financial assistant that helps users identify company names and stock tickers.

For each token you are given, decide whether it is a misspelled or ambiguous name of a well-known publicly traded company. If so, identify the most likely company and its primary stock ticker symbol.

RULES:
1. Consider common typos, missing letters, extra letters and phonetic similarities.
2. Only suggest corrections for well-known publicly traded companies.
3. If a token is not a company name, set is_misspelled to false.
4. Only suggest a correction when you are reasonably sure. Grade your confidence as high, medium or low.

EXAMPLES:
- "matae" -> Meta Platforms Inc. (META), high
- "microsft" -> Microsoft Corporation (MSFT), high
- "gogle" -> Alphabet Inc. (GOOGL), high
- "month" -> not a company`

// correctionSchema is the structured output requested from the model
var correctionSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"corrections": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"original_token": map[string]interface{}{"type": "string"},
					"is_misspelled":  map[string]interface{}{"type": "boolean"},
					"corrected_name": map[string]interface{}{"type": "string"},
					"ticker":         map[string]interface{}{"type": "string"},
					"confidence":     map[string]interface{}{"type": "string", "enum": []string{"high", "medium", "low"}},
					"explanation":    map[string]interface{}{"type": "string"},
				},
				"required": []string{"original_token", "is_misspelled"},
			},
		},
	},
	"required": []string{"corrections"},
}

type correctionResponse struct {
	Corrections []correctionItem `json:"corrections" validate:"dive"`
}

type correctionItem struct {
	OriginalToken string `json:"original_token" validate:"required"`
	IsMisspelled  bool   `json:"is_misspelled"`
	CorrectedName string `json:"corrected_name" validate:"required_if=IsMisspelled true"`
	Ticker        string `json:"ticker" validate:"required_if=IsMisspelled true,max=12"`
	Confidence    string `json:"confidence" validate:"omitempty,oneof=high medium low"`
	Explanation   string `json:"explanation"`
}

// LLMGateway asks a language model for corrections
type LLMGateway struct {
	generator interfaces.ContentGenerator
	model     string
	timeout   time.Duration
	validate  *validator.Validate
	logger    arbor.ILogger
}

var _ interfaces.CorrectionGateway = (*LLMGateway)(nil)

// NewLLMGateway creates an LLM backed gateway. A zero timeout means 15s.
func NewLLMGateway(generator interfaces.ContentGenerator, model string, timeout time.Duration, logger arbor.ILogger) *LLMGateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &LLMGateway{
		generator: generator,
		model:     model,
		timeout:   timeout,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Name identifies the gateway in logs.
func (g *LLMGateway) Name() string { return "llm" }

// ProposeCorrections implements interfaces.CorrectionGateway.
func (g *LLMGateway) ProposeCorrections(ctx context.Context, tokens []string, queryContext string) ([]models.CorrectionCandidate, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if !g.generator.Available() {
		return nil, fmt.Errorf("%w: no LLM API key configured", interfaces.ErrGatewayUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	text, err := g.generator.Generate(ctx, &interfaces.GenerateRequest{
		Messages:          []interfaces.Message{{Role: "user", Content: buildPrompt(tokens, queryContext)}},
		Model:             g.model,
		SystemInstruction: systemPrompt,
		Temperature:       0.1,
		OutputSchema:      correctionSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrGatewayUnavailable, err)
	}

	var resp correctionResponse
	if err := json.Unmarshal([]byte(llm.CleanJSON(text)), &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse correction response: %v", interfaces.ErrGatewayUnavailable, err)
	}
	if err := g.validate.Struct(&resp); err != nil {
		return nil, fmt.Errorf("%w: invalid correction response: %v", interfaces.ErrGatewayUnavailable, err)
	}

	candidates := orderCandidates(tokens, toCandidates(resp.Corrections))

	g.logger.Info().
		Int("tokens", len(tokens)).
		Int("candidates", len(candidates)).
		Dur("duration", time.Since(started)).
		Msg("LLM correction completed")

	return candidates, nil
}

func buildPrompt(tokens []string, queryContext string) string {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	return fmt.Sprintf("USER QUERY: %q\n\nTOKENS: %s\n\nReturn one entry in corrections for each token.",
		queryContext, strings.Join(quoted, ", "))
}

func toCandidates(items []correctionItem) []models.CorrectionCandidate {
	var candidates []models.CorrectionCandidate
	for _, item := range items {
		ticker := strings.ToUpper(strings.TrimSpace(item.Ticker))
		if !item.IsMisspelled || !common.IsTickerShape(ticker) {
			continue
		}
		candidates = append(candidates, models.CorrectionCandidate{
			OriginalToken:   item.OriginalToken,
			CandidateName:   strings.TrimSpace(item.CorrectedName),
			CandidateTicker: ticker,
			Confidence:      models.ParseConfidenceTier(item.Confidence),
		})
	}
	return candidates
}

// orderCandidates keeps at most one candidate per requested token, in token
// order, and drops candidates for tokens that were not asked about.
func orderCandidates(tokens []string, candidates []models.CorrectionCandidate) []models.CorrectionCandidate {
	byToken := make(map[string]models.CorrectionCandidate, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(strings.TrimSpace(c.OriginalToken))
		if _, ok := byToken[key]; !ok {
			byToken[key] = c
		}
	}

	ordered := make([]models.CorrectionCandidate, 0, len(byToken))
	for _, token := range tokens {
		key := strings.ToLower(token)
		if c, ok := byToken[key]; ok {
			c.OriginalToken = token
			ordered = append(ordered, c)
			delete(byToken, key)
		}
	}
	return ordered
}
