package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFiles_Defaults(t *testing.T) {
	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "30m", config.Conversation.TTL)
	assert.Equal(t, 4, config.Orchestrator.MaxConcurrency)
	assert.Equal(t, 0.95, config.Resolver.FuzzyThreshold)
	assert.Equal(t, LLMProviderGemini, config.LLM.DefaultProvider)
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	dir := t.TempDir()
	base := writeConfig(t, dir, "base.toml", `
[server]
port = 9000
host = "0.0.0.0"

[conversation]
ttl = "10m"
`)
	override := writeConfig(t, dir, "override.toml", `
[server]
port = 9100

[orchestrator]
max_concurrency = 2
pipeline_timeout = "20s"
`)

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 9100, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, "10m", config.Conversation.TTL)
	assert.Equal(t, 2, config.Orchestrator.MaxConcurrency)
	assert.Equal(t, "20s", config.Orchestrator.PipelineTimeout)
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("TICKERCHAT_SERVER_PORT", "7070")
	t.Setenv("TICKERCHAT_CONVERSATION_TTL", "5m")
	t.Setenv("GEMINI_API_KEY", "gemini-from-env")
	t.Setenv("TICKERCHAT_EODHD_API_KEY", "eodhd-from-env")
	t.Setenv("TICKERCHAT_SERVER_CORS_ORIGINS", "https://app.example.com, ,http://localhost:3000")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 7070, config.Server.Port)
	assert.Equal(t, []string{"https://app.example.com", "http://localhost:3000"}, config.Server.CORSOrigins)
	assert.Equal(t, "5m", config.Conversation.TTL)
	assert.Equal(t, "gemini-from-env", config.Gemini.APIKey)
	assert.Equal(t, "eodhd-from-env", config.EODHD.APIKey)
}

func TestLoadFromFiles_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad ttl", "[conversation]\nttl = \"soon\"\n"},
		{"negative timeout", "[orchestrator]\npipeline_timeout = \"-5s\"\n"},
		{"bad schedule", "[conversation]\nsweep_schedule = \"every now and then\"\n"},
		{"bad provider", "[llm]\ndefault_provider = \"openai\"\n"},
		{"bad threshold", "[resolver]\nfuzzy_threshold = 1.5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), "config.toml", tt.content)
			_, err := LoadFromFiles(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 8080, config.Server.Port)

	ApplyFlagOverrides(config, 9999, "127.0.0.1")
	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
}

func TestParseDurationOr(t *testing.T) {
	assert.Equal(t, 5*time.Second, ParseDurationOr("5s", time.Minute))
	assert.Equal(t, time.Minute, ParseDurationOr("", time.Minute))
	assert.Equal(t, time.Minute, ParseDurationOr("bogus", time.Minute))
	assert.Equal(t, time.Minute, ParseDurationOr("-1s", time.Minute))
}

func TestIDs(t *testing.T) {
	conv := NewConversationID()
	ana := NewAnalysisID()

	assert.True(t, IsConversationID(conv))
	assert.False(t, IsConversationID(ana))
	assert.True(t, IsAnalysisID(ana))
	assert.False(t, IsAnalysisID("ana_not-a-uuid"))
	assert.NotEqual(t, conv, NewConversationID())
}

func TestCallSafely(t *testing.T) {
	err := CallSafely(func() error {
		panic("boom")
	})
	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "boom", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)

	assert.NoError(t, CallSafely(func() error { return nil }))
}
