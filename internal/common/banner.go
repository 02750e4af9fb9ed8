package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the effective settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("TickerChat", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Str("host", config.Server.Host).
		Int("port", config.Server.Port).
		Str("llm_provider", string(config.LLM.DefaultProvider)).
		Str("conversation_ttl", config.Conversation.TTL).
		Int("max_concurrency", config.Orchestrator.MaxConcurrency).
		Msg("Configuration loaded")
}
