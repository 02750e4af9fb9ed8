package correction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/common"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
	"github.com/ternarybob/tickerchat/internal/resolver"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, request *interfaces.GenerateRequest) (string, error) {
	args := m.Called(ctx, request)
	return args.String(0), args.Error(1)
}

func (m *mockGenerator) Available() bool {
	return m.Called().Bool(0)
}

type stubGateway struct {
	name       string
	candidates []models.CorrectionCandidate
	err        error
	asked      [][]string
}

func (s *stubGateway) Name() string { return s.name }

func (s *stubGateway) ProposeCorrections(ctx context.Context, tokens []string, queryContext string) ([]models.CorrectionCandidate, error) {
	s.asked = append(s.asked, tokens)
	return s.candidates, s.err
}

func TestLLMGateway_ProposeCorrections(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Available").Return(true)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(r *interfaces.GenerateRequest) bool {
		return r.OutputSchema != nil && len(r.Messages) == 1
	})).Return("```json\n"+`{"corrections":[
		{"original_token":"gogle","is_misspelled":true,"corrected_name":"Alphabet Inc.","ticker":"googl","confidence":"high"},
		{"original_token":"microsft","is_misspelled":true,"corrected_name":"Microsoft Corporation","ticker":"MSFT","confidence":"medium"},
		{"original_token":"month","is_misspelled":false},
		{"original_token":"unasked","is_misspelled":true,"corrected_name":"X","ticker":"X","confidence":"low"}
	]}`+"\n```", nil)

	g := NewLLMGateway(gen, "", time.Second, arbor.NewLogger())
	candidates, err := g.ProposeCorrections(context.Background(), []string{"microsft", "gogle", "month"}, "Compare microsft and gogle this month")
	require.NoError(t, err)

	require.Len(t, candidates, 2)
	assert.Equal(t, models.CorrectionCandidate{
		OriginalToken: "microsft", CandidateName: "Microsoft Corporation", CandidateTicker: "MSFT", Confidence: models.ConfidenceMedium,
	}, candidates[0])
	assert.Equal(t, "GOOGL", candidates[1].CandidateTicker)
	assert.Equal(t, models.ConfidenceHigh, candidates[1].Confidence)
	gen.AssertExpectations(t)
}

func TestLLMGateway_Unavailable(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Available").Return(false)

	g := NewLLMGateway(gen, "", time.Second, arbor.NewLogger())
	_, err := g.ProposeCorrections(context.Background(), []string{"matae"}, "matae")
	assert.ErrorIs(t, err, interfaces.ErrGatewayUnavailable)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestLLMGateway_Failures(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{"generation error", "", errors.New("503 unavailable")},
		{"not json", "I think you meant Meta", nil},
		{"missing ticker", `{"corrections":[{"original_token":"matae","is_misspelled":true,"corrected_name":"Meta"}]}`, nil},
		{"bad confidence", `{"corrections":[{"original_token":"matae","is_misspelled":true,"corrected_name":"Meta","ticker":"META","confidence":"certain"}]}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(mockGenerator)
			gen.On("Available").Return(true)
			gen.On("Generate", mock.Anything, mock.Anything).Return(tt.response, tt.err)

			g := NewLLMGateway(gen, "", time.Second, arbor.NewLogger())
			_, err := g.ProposeCorrections(context.Background(), []string{"matae"}, "matae")
			assert.ErrorIs(t, err, interfaces.ErrGatewayUnavailable)
		})
	}
}

func TestLocalGateway(t *testing.T) {
	g := NewLocalGateway(resolver.New(nil))

	candidates, err := g.ProposeCorrections(context.Background(), []string{"microsft", "zzzzqqq", "matae"}, "")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "microsft", candidates[0].OriginalToken)
	assert.Equal(t, "MSFT", candidates[0].CandidateTicker)
	assert.Equal(t, "Microsoft Corporation", candidates[0].CandidateName)
	assert.Equal(t, models.ConfidenceHigh, candidates[0].Confidence)

	assert.Equal(t, "META", candidates[1].CandidateTicker)
	assert.Equal(t, models.ConfidenceLow, candidates[1].Confidence)
}

func TestTierForRatio(t *testing.T) {
	assert.Equal(t, models.ConfidenceHigh, TierForRatio(0.9))
	assert.Equal(t, models.ConfidenceHigh, TierForRatio(0.85))
	assert.Equal(t, models.ConfidenceMedium, TierForRatio(0.7))
	assert.Equal(t, models.ConfidenceLow, TierForRatio(0.65))
}

func TestChainGateway(t *testing.T) {
	first := &stubGateway{name: "first", candidates: []models.CorrectionCandidate{
		{OriginalToken: "gogle", CandidateName: "Alphabet Inc.", CandidateTicker: "GOOGL", Confidence: models.ConfidenceHigh},
	}}
	second := &stubGateway{name: "second", candidates: []models.CorrectionCandidate{
		{OriginalToken: "microsft", CandidateName: "Microsoft Corporation", CandidateTicker: "MSFT", Confidence: models.ConfidenceHigh},
	}}

	chain := NewChainGateway(arbor.NewLogger(), first, second)
	assert.Equal(t, "chain(first,second)", chain.Name())

	candidates, err := chain.ProposeCorrections(context.Background(), []string{"microsft", "gogle"}, "")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "MSFT", candidates[0].CandidateTicker, "candidates follow token order")
	assert.Equal(t, "GOOGL", candidates[1].CandidateTicker)
	assert.Equal(t, [][]string{{"microsft"}}, second.asked, "second gateway only sees uncovered tokens")
}

func TestChainGateway_FailOver(t *testing.T) {
	failing := &stubGateway{name: "llm", err: interfaces.ErrGatewayUnavailable}
	local := NewLocalGateway(resolver.New(nil))

	candidates, err := NewChainGateway(arbor.NewLogger(), failing, local).
		ProposeCorrections(context.Background(), []string{"gogle"}, "")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "GOOGL", candidates[0].CandidateTicker)

	_, err = NewChainGateway(arbor.NewLogger(), failing, &stubGateway{name: "b", err: errors.New("down")}).
		ProposeCorrections(context.Background(), []string{"gogle"}, "")
	assert.Error(t, err)
}

func TestNew_SelectsGateway(t *testing.T) {
	r := resolver.New(nil)
	config := common.NewDefaultConfig()
	logger := arbor.NewLogger()

	unavailable := new(mockGenerator)
	unavailable.On("Available").Return(false)
	available := new(mockGenerator)
	available.On("Available").Return(true)

	config.Correction.Enabled = true
	config.Correction.LocalFallback = true
	assert.IsType(t, &ChainGateway{}, New(config, available, r, logger))
	assert.IsType(t, &LocalGateway{}, New(config, unavailable, r, logger))

	config.Correction.LocalFallback = false
	assert.IsType(t, &LLMGateway{}, New(config, available, r, logger))
	assert.IsType(t, DisabledGateway{}, New(config, unavailable, r, logger))

	_, err := DisabledGateway{}.ProposeCorrections(context.Background(), []string{"x"}, "")
	assert.ErrorIs(t, err, interfaces.ErrGatewayUnavailable)
}
