package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/common"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"google.golang.org/genai"
)

func newTestFactory(provider common.LLMProvider) *ProviderFactory {
	config := common.NewDefaultConfig()
	config.LLM.DefaultProvider = provider
	return NewProviderFactory(config, arbor.NewLogger())
}

func TestDetectProvider(t *testing.T) {
	f := newTestFactory(common.LLMProviderGemini)

	tests := []struct {
		model    string
		expected ProviderType
	}{
		{"claude-sonnet-4-20250514", ProviderClaude},
		{"anthropic/claude-haiku", ProviderClaude},
		{"gemini-3-flash", ProviderGemini},
		{"google/gemini-3-flash", ProviderGemini},
		{"", ProviderGemini},
		{"something-else", ProviderGemini},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.DetectProvider(tt.model))
		})
	}

	assert.Equal(t, ProviderClaude, newTestFactory(common.LLMProviderClaude).DetectProvider(""))
}

func TestNormalizeModel(t *testing.T) {
	f := newTestFactory(common.LLMProviderGemini)
	assert.Equal(t, "claude-haiku", f.NormalizeModel("claude/claude-haiku"))
	assert.Equal(t, "gemini-3-flash", f.NormalizeModel("Google/gemini-3-flash"))
	assert.Equal(t, "gemini-3-flash", f.NormalizeModel("gemini-3-flash"))
}

func TestAvailable(t *testing.T) {
	f := newTestFactory(common.LLMProviderGemini)
	assert.False(t, f.Available())

	f.geminiConfig.APIKey = "key"
	assert.True(t, f.Available())
}

func TestGenerate_MissingKey(t *testing.T) {
	f := newTestFactory(common.LLMProviderClaude)
	_, err := f.Generate(context.Background(), &interfaces.GenerateRequest{
		Messages: []interfaces.Message{{Role: "user", Content: "hi"}},
	})
	assert.Error(t, err)
}

func TestConvertMessages(t *testing.T) {
	messages := []interfaces.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	}

	contents, system, err := convertMessagesToGemini(messages)
	require.NoError(t, err)
	assert.Equal(t, "be brief", system)
	require.Len(t, contents, 2)
	assert.Equal(t, genai.RoleModel, contents[1].Role)

	claudeMessages, system, err := convertMessagesToClaude(messages)
	require.NoError(t, err)
	assert.Equal(t, "be brief", system)
	assert.Len(t, claudeMessages, 2)

	_, _, err = convertMessagesToGemini(nil)
	assert.Error(t, err)
	_, _, err = convertMessagesToClaude([]interfaces.Message{{Role: "assistant", Content: "x"}})
	assert.Error(t, err)
}

func TestConvertToGenaiSchema(t *testing.T) {
	schema, err := convertToGenaiSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"stance": map[string]interface{}{"type": "string", "enum": []string{"buy", "hold", "sell"}},
			"risks":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		},
		"required": []string{"stance"},
	})
	require.NoError(t, err)
	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, []string{"buy", "hold", "sell"}, schema.Properties["stance"].Enum)
	assert.Equal(t, genai.TypeString, schema.Properties["risks"].Items.Type)
	assert.Equal(t, []string{"stance"}, schema.Required)

	empty, err := convertToGenaiSchema(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name, input, expected string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose", "Here you go: {\"a\":{\"b\":2}} hope it helps", `{"a":{"b":2}}`},
		{"array", "```\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"no json", "nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSON(tt.input))
		})
	}
}

func TestRetryBackoff(t *testing.T) {
	config := NewRetryConfig(3)

	assert.Equal(t, 2*time.Second, config.Backoff(0, errors.New("boom")))
	assert.Equal(t, 4*time.Second, config.Backoff(1, errors.New("boom")))

	rateLimited := errors.New("Error 429, Please retry in 10s., Status: RESOURCE_EXHAUSTED")
	assert.Equal(t, 10*time.Second, ExtractRetryDelay(rateLimited))
	assert.Equal(t, 15*time.Second, config.Backoff(0, rateLimited))
	assert.Equal(t, DefaultMaxBackoff, config.Backoff(10, rateLimited))

	assert.Equal(t, DefaultMaxRetries, NewRetryConfig(-1).MaxRetries)
}

func TestWithRetry(t *testing.T) {
	config := NewRetryConfig(2)
	config.ErrorBackoff = time.Millisecond

	calls := 0
	err := withRetry(context.Background(), config, arbor.NewLogger(), "test", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = withRetry(context.Background(), config, arbor.NewLogger(), "test", func() error {
		calls++
		return errors.New("permanent")
	})
	assert.EqualError(t, err, "permanent")
	assert.Equal(t, 3, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	config.ErrorBackoff = time.Hour
	err = withRetry(ctx, config, arbor.NewLogger(), "test", func() error { return errors.New("x") })
	assert.ErrorIs(t, err, context.Canceled)
}
