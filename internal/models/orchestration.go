package models

import "time"

// FailureKind classifies a failed pipeline run
type FailureKind string

const (
	FailureError     FailureKind = "error"
	FailureTimeout   FailureKind = "timeout"
	FailureMalformed FailureKind = "malformed"
	FailurePanic     FailureKind = "panic"
)

// OrchestrationRequest is the input to one fan-out over resolved tickers
type OrchestrationRequest struct {
	Tickers         []string      `json:"tickers"`
	Query           string        `json:"query"`
	PipelineTimeout time.Duration `json:"pipeline_timeout"`
}

// Failure describes why a ticker produced no insight
type Failure struct {
	Ticker string      `json:"ticker"`
	Reason string      `json:"reason"`
	Kind   FailureKind `json:"kind"`
}

// PipelineOutcome is the result for one requested ticker; exactly one of
// Insight and Failure is set.
type PipelineOutcome struct {
	Ticker    string         `json:"ticker"`
	Insight   *TickerInsight `json:"insight,omitempty"`
	Failure   *Failure       `json:"failure,omitempty"`
	LatencyMs float64        `json:"latency_ms"`
}

// Succeeded reports whether the outcome carries an insight.
func (o PipelineOutcome) Succeeded() bool {
	return o.Failure == nil && o.Insight != nil
}

// OrchestrationResult aggregates outcomes in request order
type OrchestrationResult struct {
	Outcomes       []PipelineOutcome `json:"outcomes"`
	PartialFailure bool              `json:"partial_failure"`
	TotalLatencyMs float64           `json:"total_latency_ms"`
}

// Counts returns the number of successful and failed outcomes.
func (r *OrchestrationResult) Counts() (succeeded, failed int) {
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// Insights returns the successful insights in request order.
func (r *OrchestrationResult) Insights() []*TickerInsight {
	insights := make([]*TickerInsight, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			insights = append(insights, o.Insight)
		}
	}
	return insights
}

// Failures returns the failures in request order.
func (r *OrchestrationResult) Failures() []Failure {
	var failures []Failure
	for _, o := range r.Outcomes {
		if o.Failure != nil {
			failures = append(failures, *o.Failure)
		}
	}
	return failures
}
