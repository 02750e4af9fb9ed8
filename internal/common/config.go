package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment  string             `toml:"environment"` // "development" or "production"
	Server       ServerConfig       `toml:"server"`
	Logging      LoggingConfig      `toml:"logging"`
	Gemini       GeminiConfig       `toml:"gemini"`
	Claude       ClaudeConfig       `toml:"claude"`
	LLM          LLMConfig          `toml:"llm"`
	EODHD        EODHDConfig        `toml:"eodhd"`
	Resolver     ResolverConfig     `toml:"resolver"`
	Correction   CorrectionConfig   `toml:"correction"`
	Conversation ConversationConfig `toml:"conversation"`
	Orchestrator OrchestratorConfig `toml:"orchestrator"`
	Storage      StorageConfig      `toml:"storage"`
	Scheduler    SchedulerConfig    `toml:"scheduler"`
	WebSocket    WebSocketConfig    `toml:"websocket"`
}

type ServerConfig struct {
	Port        int      `toml:"port"`
	Host        string   `toml:"host"`
	CORSOrigins []string `toml:"cors_origins"` // "*" allows any origin
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default: "15:04:05"
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // default: "gemini-3-flash-preview"
	Thinking    string  `toml:"thinking"`    // MINIMAL, LOW, MEDIUM, HIGH (empty = provider default)
	Timeout     string  `toml:"timeout"`     // default: "2m"
	Temperature float32 `toml:"temperature"` // default: 0.2
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`      // default: "claude-haiku-3-5-20241022"
	MaxTokens   int     `toml:"max_tokens"` // default: 4096
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	LLMProviderGemini LLMProvider = "gemini"
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the provider used when a model string does not name one
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"`
	MaxRetries      int         `toml:"max_retries"` // default: 2
}

// EODHDConfig configures the market data client
type EODHDConfig struct {
	APIKey        string `toml:"api_key"`
	BaseURL       string `toml:"base_url"`
	Timeout       string `toml:"timeout"`        // HTTP timeout, default "30s"
	RateLimit     int    `toml:"rate_limit"`     // requests per second, default 10
	HistoryDays   int    `toml:"history_days"`   // price history window, default 365
	NewsLimit     int    `toml:"news_limit"`     // articles per ticker, default 10
	DefaultMarket string `toml:"default_market"` // exchange used for bare tickers, default "NASDAQ"
}

// ResolverConfig tunes the ticker directory lookup
type ResolverConfig struct {
	FuzzyThreshold      float64 `toml:"fuzzy_threshold"`      // auto-accept ratio, default 0.95
	SuggestionThreshold float64 `toml:"suggestion_threshold"` // local suggestion cutoff, default 0.6
	DirectoryFile       string  `toml:"directory_file"`       // optional extra entries (.toml/.yaml)
}

// CorrectionConfig configures the correction oracle
type CorrectionConfig struct {
	Enabled       bool   `toml:"enabled"`        // use the LLM oracle when a key is present
	Model         string `toml:"model"`          // empty = provider default
	Timeout       string `toml:"timeout"`        // default "15s"
	LocalFallback bool   `toml:"local_fallback"` // fall back to directory suggestions
}

// ConversationConfig configures the conversation store
type ConversationConfig struct {
	TTL           string `toml:"ttl"`            // default "30m"
	SweepSchedule string `toml:"sweep_schedule"` // cron spec, default "@every 1m"
}

// OrchestratorConfig configures the per-ticker fan-out
type OrchestratorConfig struct {
	MaxConcurrency  int    `toml:"max_concurrency"`  // default 4
	PipelineTimeout string `toml:"pipeline_timeout"` // default "90s"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
	InMemory       bool   `toml:"in_memory"`
}

// SchedulerConfig configures housekeeping jobs
type SchedulerConfig struct {
	RetentionSchedule string `toml:"retention_schedule"` // cron spec, default "0 0 * * * *"
	Retention         string `toml:"retention"`          // analysis record lifetime, default "168h"
}

// WebSocketConfig configures the research event stream
type WebSocketConfig struct {
	Enabled           bool              `toml:"enabled"`
	AllowedEvents     []string          `toml:"allowed_events"`     // empty = all events
	ThrottleIntervals map[string]string `toml:"throttle_intervals"` // event type -> min interval, e.g. "500ms"
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:        8080,
			Host:        "localhost",
			CORSOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Gemini: GeminiConfig{
			Model:       "gemini-3-flash-preview",
			Timeout:     "2m",
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   4096,
			Timeout:     "2m",
			Temperature: 0.2,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
			MaxRetries:      2,
		},
		EODHD: EODHDConfig{
			BaseURL:       "https://eodhd.com/api",
			Timeout:       "30s",
			RateLimit:     10,
			HistoryDays:   365,
			NewsLimit:     10,
			DefaultMarket: "NASDAQ",
		},
		Resolver: ResolverConfig{
			FuzzyThreshold:      0.95,
			SuggestionThreshold: 0.6,
		},
		Correction: CorrectionConfig{
			Enabled:       true,
			Timeout:       "15s",
			LocalFallback: true,
		},
		Conversation: ConversationConfig{
			TTL:           "30m",
			SweepSchedule: "@every 1m",
		},
		Orchestrator: OrchestratorConfig{
			MaxConcurrency:  4,
			PipelineTimeout: "90s",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/tickerchat",
			},
		},
		Scheduler: SchedulerConfig{
			RetentionSchedule: "0 0 * * * *",
			Retention:         "168h",
		},
		WebSocket: WebSocketConfig{
			Enabled: true,
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// CLI flags are applied afterwards by ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TICKERCHAT_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("TICKERCHAT_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("TICKERCHAT_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if origins := os.Getenv("TICKERCHAT_SERVER_CORS_ORIGINS"); origins != "" {
		config.Server.CORSOrigins = splitList(origins)
	}
	if level := os.Getenv("TICKERCHAT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// API keys: project-prefixed name first, then the vendor's conventional name
	config.Gemini.APIKey = firstNonEmpty(os.Getenv("TICKERCHAT_GEMINI_API_KEY"), os.Getenv("GEMINI_API_KEY"), config.Gemini.APIKey)
	config.Claude.APIKey = firstNonEmpty(os.Getenv("TICKERCHAT_CLAUDE_API_KEY"), os.Getenv("ANTHROPIC_API_KEY"), config.Claude.APIKey)
	config.EODHD.APIKey = firstNonEmpty(os.Getenv("TICKERCHAT_EODHD_API_KEY"), os.Getenv("EODHD_API_KEY"), config.EODHD.APIKey)

	if provider := os.Getenv("TICKERCHAT_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}
	if ttl := os.Getenv("TICKERCHAT_CONVERSATION_TTL"); ttl != "" {
		config.Conversation.TTL = ttl
	}
	if c := os.Getenv("TICKERCHAT_MAX_CONCURRENCY"); c != "" {
		if n, err := strconv.Atoi(c); err == nil {
			config.Orchestrator.MaxConcurrency = n
		}
	}
	if timeout := os.Getenv("TICKERCHAT_PIPELINE_TIMEOUT"); timeout != "" {
		config.Orchestrator.PipelineTimeout = timeout
	}
	if path := os.Getenv("TICKERCHAT_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the values that are parsed lazily elsewhere so that a bad
// config fails at startup instead of on the first request.
func (c *Config) Validate() error {
	durations := map[string]string{
		"conversation.ttl":              c.Conversation.TTL,
		"orchestrator.pipeline_timeout": c.Orchestrator.PipelineTimeout,
		"correction.timeout":            c.Correction.Timeout,
		"scheduler.retention":           c.Scheduler.Retention,
		"eodhd.timeout":                 c.EODHD.Timeout,
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, value)
		}
	}

	for key, spec := range map[string]string{
		"conversation.sweep_schedule":  c.Conversation.SweepSchedule,
		"scheduler.retention_schedule": c.Scheduler.RetentionSchedule,
	} {
		if spec == "" {
			continue
		}
		if err := ValidateSchedule(spec); err != nil {
			return fmt.Errorf("invalid schedule for %s: %w", key, err)
		}
	}

	if c.Orchestrator.MaxConcurrency < 0 {
		return fmt.Errorf("orchestrator.max_concurrency must not be negative")
	}
	if c.Resolver.FuzzyThreshold <= 0 || c.Resolver.FuzzyThreshold > 1 {
		return fmt.Errorf("resolver.fuzzy_threshold must be in (0, 1]")
	}

	switch c.LLM.DefaultProvider {
	case LLMProviderGemini, LLMProviderClaude:
	default:
		return fmt.Errorf("llm.default_provider must be gemini or claude, got %q", c.LLM.DefaultProvider)
	}

	return nil
}

// ScheduleParser accepts optional seconds and descriptors such as "@every 1m"
var ScheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSchedule validates a cron schedule expression
func ValidateSchedule(schedule string) error {
	if _, err := ScheduleParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// ParseDurationOr parses value, returning fallback when it is empty or invalid
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// splitList splits a comma separated value, dropping blank entries.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
