package models

import "time"

// Stance is the investment recommendation of an insight
type Stance string

const (
	StanceBuy  Stance = "buy"
	StanceHold Stance = "hold"
	StanceSell Stance = "sell"
)

// IsValid reports whether s is one of the known stances.
func (s Stance) IsValid() bool {
	return s == StanceBuy || s == StanceHold || s == StanceSell
}

// SourceInfo describes a piece of evidence used by the pipeline
type SourceInfo struct {
	URL         string     `json:"url"`
	Title       string     `json:"title,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`
	Snippet     string     `json:"snippet,omitempty"`
}

// AgentStep is a single stage executed while building an insight
type AgentStep struct {
	StepNumber  int          `json:"step_number"`
	Thought     string       `json:"thought"`
	Action      string       `json:"action"`
	Observation string       `json:"observation"`
	Sources     []SourceInfo `json:"sources,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	LatencyMs   float64      `json:"latency_ms"`
}

// AgentTrace records the steps of one agent for one ticker
type AgentTrace struct {
	AgentType      string      `json:"agent_type"`
	Ticker         string      `json:"ticker"`
	Steps          []AgentStep `json:"steps"`
	TotalLatencyMs float64     `json:"total_latency_ms"`
	Success        bool        `json:"success"`
	ErrorMessage   string      `json:"error_message,omitempty"`
}

// TickerInsight is the structured research output for one ticker
type TickerInsight struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"company_name,omitempty"`

	CurrentPrice     *float64 `json:"current_price,omitempty"`
	MarketCap        *float64 `json:"market_cap,omitempty"`
	PERatio          *float64 `json:"pe_ratio,omitempty"`
	FiftyTwoWeekHigh *float64 `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow  *float64 `json:"fifty_two_week_low,omitempty"`

	SupportLevels    []float64 `json:"support_levels"`
	ResistanceLevels []float64 `json:"resistance_levels"`
	Trend            string    `json:"trend,omitempty"`

	Summary    string   `json:"summary"`
	KeyDrivers []string `json:"key_drivers"`
	Risks      []string `json:"risks"`
	Catalysts  []string `json:"catalysts"`

	Stance     Stance         `json:"stance"`
	Confidence ConfidenceTier `json:"confidence"`
	Rationale  string         `json:"rationale"`

	Sources     []SourceInfo `json:"sources"`
	AgentTraces []AgentTrace `json:"agent_traces"`

	AnalysisTimestamp time.Time `json:"analysis_timestamp"`
}
