// Package orchestrator fans one analysis pipeline per ticker out over a
// bounded set of workers and gathers the outcomes in request order.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/common"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
)

const (
	DefaultMaxConcurrency  = 4
	MaxConcurrencyCeiling  = 16
	DefaultPipelineTimeout = 90 * time.Second
)

// ProgressFunc is called once per settled ticker. Calls are serialised.
type ProgressFunc func(outcome models.PipelineOutcome, completed, total int)

// Orchestrator runs AnalysisPipeline over many tickers
type Orchestrator struct {
	pipeline       interfaces.AnalysisPipeline
	maxConcurrency int
	timeout        time.Duration
	logger         arbor.ILogger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithMaxConcurrency caps the number of pipelines running at once. Values
// above MaxConcurrencyCeiling are clamped; zero or less keeps the default.
func WithMaxConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n <= 0 {
			return
		}
		if n > MaxConcurrencyCeiling {
			n = MaxConcurrencyCeiling
		}
		o.maxConcurrency = n
	}
}

// WithPipelineTimeout sets the timeout used when a request carries none.
func WithPipelineTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// New creates an Orchestrator for pipeline.
func New(pipeline interfaces.AnalysisPipeline, logger arbor.ILogger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		pipeline:       pipeline,
		maxConcurrency: DefaultMaxConcurrency,
		timeout:        DefaultPipelineTimeout,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewFromConfig creates an Orchestrator from the [orchestrator] section.
func NewFromConfig(pipeline interfaces.AnalysisPipeline, config *common.OrchestratorConfig, logger arbor.ILogger) *Orchestrator {
	return New(pipeline, logger,
		WithMaxConcurrency(config.MaxConcurrency),
		WithPipelineTimeout(common.ParseDurationOr(config.PipelineTimeout, DefaultPipelineTimeout)),
	)
}

// PipelineTimeout returns the default per-pipeline timeout.
func (o *Orchestrator) PipelineTimeout() time.Duration {
	return o.timeout
}

// Run executes the request and returns one outcome per distinct ticker, in
// request order. It never returns an error: failures are reported per ticker.
func (o *Orchestrator) Run(ctx context.Context, req models.OrchestrationRequest) *models.OrchestrationResult {
	return o.RunWithProgress(ctx, req, nil)
}

// RunWithProgress is Run with a callback for each settled ticker.
func (o *Orchestrator) RunWithProgress(ctx context.Context, req models.OrchestrationRequest, progress ProgressFunc) *models.OrchestrationResult {
	start := time.Now()
	tickers := dedupe(req.Tickers)
	timeout := req.PipelineTimeout
	if timeout <= 0 {
		timeout = o.timeout
	}

	o.logger.Info().
		Strs("tickers", tickers).
		Int("max_concurrency", o.maxConcurrency).
		Dur("pipeline_timeout", timeout).
		Msg("Starting orchestration")

	outcomes := make([]models.PipelineOutcome, len(tickers))
	sem := make(chan struct{}, o.maxConcurrency)
	var wg sync.WaitGroup

	var progressMu sync.Mutex
	completed := 0
	report := func(outcome models.PipelineOutcome) {
		if progress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		completed++
		progress(outcome, completed, len(tickers))
	}

	for i, ticker := range tickers {
		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()

			// Each worker writes only its own slot.
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
				outcomes[i] = o.runOne(ctx, ticker, req.Query, timeout)
			case <-ctx.Done():
				outcomes[i] = failed(ticker, ctx.Err(), 0)
			}
			report(outcomes[i])
		}(i, ticker)
	}
	wg.Wait()

	result := &models.OrchestrationResult{
		Outcomes:       outcomes,
		TotalLatencyMs: millis(time.Since(start)),
	}
	succeeded, failures := result.Counts()
	result.PartialFailure = succeeded > 0 && failures > 0

	o.logger.Info().
		Int("succeeded", succeeded).
		Int("failed", failures).
		Bool("partial_failure", result.PartialFailure).
		Dur("elapsed", time.Since(start)).
		Msg("Orchestration completed")

	return result
}

type pipelineResult struct {
	insight *models.TickerInsight
	err     error
}

// runOne runs a single pipeline under its own deadline. A pipeline that
// ignores cancellation is abandoned when the deadline passes.
func (o *Orchestrator) runOne(ctx context.Context, ticker, query string, timeout time.Duration) models.PipelineOutcome {
	start := time.Now()
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan pipelineResult, 1)
	go func() {
		var insight *models.TickerInsight
		err := common.CallSafely(func() error {
			var err error
			insight, err = o.pipeline.Run(pctx, ticker, query)
			return err
		})
		done <- pipelineResult{insight: insight, err: err}
	}()

	var res pipelineResult
	select {
	case res = <-done:
	case <-pctx.Done():
		res = pipelineResult{err: pctx.Err()}
	}
	latency := millis(time.Since(start))

	if res.err == nil {
		res.err = checkInsight(ticker, res.insight)
	}
	if res.err != nil {
		outcome := failed(ticker, res.err, latency)
		o.logger.Warn().
			Str("ticker", ticker).
			Str("kind", string(outcome.Failure.Kind)).
			Err(res.err).
			Msg("Pipeline failed")
		return outcome
	}

	o.logger.Debug().
		Str("ticker", ticker).
		Dur("elapsed", time.Since(start)).
		Msg("Pipeline completed")
	return models.PipelineOutcome{Ticker: ticker, Insight: res.insight, LatencyMs: latency}
}

func checkInsight(ticker string, insight *models.TickerInsight) error {
	if insight == nil {
		return fmt.Errorf("%w: pipeline returned no insight", interfaces.ErrMalformedInsight)
	}
	if insight.Ticker == "" {
		insight.Ticker = ticker
	}
	if insight.Ticker != ticker {
		return fmt.Errorf("%w: insight is for %s", interfaces.ErrMalformedInsight, insight.Ticker)
	}
	return nil
}

func failed(ticker string, err error, latency float64) models.PipelineOutcome {
	return models.PipelineOutcome{
		Ticker:    ticker,
		Failure:   &models.Failure{Ticker: ticker, Reason: err.Error(), Kind: FailureKind(err)},
		LatencyMs: latency,
	}
}

// FailureKind classifies a pipeline error.
func FailureKind(err error) models.FailureKind {
	var panicErr *common.PanicError
	switch {
	case errors.As(err, &panicErr):
		return models.FailurePanic
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, interfaces.ErrPipelineTimeout):
		return models.FailureTimeout
	case errors.Is(err, interfaces.ErrMalformedInsight):
		return models.FailureMalformed
	default:
		return models.FailureError
	}
}

func dedupe(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
