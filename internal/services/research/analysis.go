package research

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/tickerchat/internal/common"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
)

// analyze records an analysis for tickers and runs it, in the background
// when the request asked for it.
func (s *Service) analyze(ctx context.Context, conversationID string, req Request, tickers []string) (*Response, error) {
	record := &models.AnalysisRecord{
		ID:             common.NewAnalysisID(),
		ConversationID: conversationID,
		Query:          req.Query,
		Tickers:        append([]string(nil), tickers...),
		Status:         models.AnalysisProcessing,
		StartedAt:      time.Now(),
	}
	s.save(ctx, record)

	s.logger.Info().
		Str("analysis_id", record.ID).
		Str("conversation_id", conversationID).
		Strs("tickers", tickers).
		Bool("async", req.Async).
		Msg("Analysis started")
	s.publish(ctx, interfaces.EventAnalysisStarted, map[string]interface{}{
		"analysis_id":     record.ID,
		"conversation_id": conversationID,
		"tickers":         tickers,
	})

	if req.Async {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.track(record.ID, cancel)
		s.wg.Add(1)
		common.SafeGo(s.logger, "analysis:"+record.ID, func() {
			defer s.wg.Done()
			s.run(runCtx, record)
		})
		return &Response{
			ConversationID: conversationID,
			Tickers:        record.Tickers,
			AnalysisID:     record.ID,
			Status:         models.AnalysisProcessing,
		}, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.track(record.ID, cancel)
	s.run(runCtx, record)

	return &Response{
		ConversationID: conversationID,
		Tickers:        record.Tickers,
		Results:        record.Result,
		AnalysisID:     record.ID,
		Status:         record.Status,
	}, nil
}

// run executes the orchestrator and stores the final record.
func (s *Service) run(ctx context.Context, record *models.AnalysisRecord) {
	defer s.untrack(record.ID)

	progress := func(outcome models.PipelineOutcome, completed, total int) {
		step := fmt.Sprintf("%s completed (%d/%d)", outcome.Ticker, completed, total)
		eventType := interfaces.EventPipelineCompleted
		payload := map[string]interface{}{
			"analysis_id": record.ID,
			"ticker":      outcome.Ticker,
			"completed":   completed,
			"total":       total,
			"latency_ms":  outcome.LatencyMs,
		}
		if outcome.Failure != nil {
			step = fmt.Sprintf("%s failed (%d/%d)", outcome.Ticker, completed, total)
			eventType = interfaces.EventPipelineFailed
			payload["reason"] = outcome.Failure.Reason
			payload["kind"] = string(outcome.Failure.Kind)
		}
		if s.analyses != nil {
			if err := s.analyses.UpdateAnalysisProgress(context.WithoutCancel(ctx), record.ID, float64(completed)/float64(total), step); err != nil {
				s.logger.Warn().Err(err).Str("analysis_id", record.ID).Msg("Failed to update analysis progress")
			}
		}
		s.publish(ctx, eventType, payload)
	}

	result := s.runner.RunWithProgress(ctx, models.OrchestrationRequest{
		Tickers: record.Tickers,
		Query:   record.Query,
	}, progress)

	succeeded, failed := result.Counts()
	now := time.Now()
	record.Result = result
	record.CompletedAt = &now
	record.Progress = 1
	record.CurrentStep = ""

	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		record.Status = models.AnalysisCancelled
		record.Error = "analysis cancelled"
	case succeeded == 0:
		record.Status = models.AnalysisFailed
		record.Error = "all pipelines failed"
	default:
		record.Status = models.AnalysisCompleted
	}
	s.save(context.WithoutCancel(ctx), record)

	s.logger.Info().
		Str("analysis_id", record.ID).
		Str("status", string(record.Status)).
		Int("succeeded", succeeded).
		Int("failed", failed).
		Bool("partial_failure", result.PartialFailure).
		Msg("Analysis finished")
	s.publish(context.WithoutCancel(ctx), interfaces.EventAnalysisCompleted, map[string]interface{}{
		"analysis_id":     record.ID,
		"status":          string(record.Status),
		"succeeded":       succeeded,
		"failed":          failed,
		"partial_failure": result.PartialFailure,
	})
}

func (s *Service) save(ctx context.Context, record *models.AnalysisRecord) {
	if s.analyses == nil {
		return
	}
	if err := s.analyses.SaveAnalysis(ctx, record); err != nil {
		s.logger.Warn().Err(err).Str("analysis_id", record.ID).Msg("Failed to save analysis")
	}
}

func (s *Service) track(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.running[id] = cancel
	s.mu.Unlock()
}

func (s *Service) untrack(id string) {
	s.mu.Lock()
	cancel, ok := s.running[id]
	delete(s.running, id)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// GetAnalysis returns a stored analysis.
func (s *Service) GetAnalysis(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	if s.analyses == nil {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrAnalysisNotFound, id)
	}
	return s.analyses.GetAnalysis(ctx, id)
}

// ListAnalyses lists stored analyses, newest first.
func (s *Service) ListAnalyses(ctx context.Context, opts *interfaces.AnalysisListOptions) ([]*models.AnalysisRecord, error) {
	if s.analyses == nil {
		return nil, nil
	}
	return s.analyses.ListAnalyses(ctx, opts)
}

// CancelAnalysis stops a running analysis. Finished analyses are left as
// they are. A processing record with no live run (left over from a previous
// process) is marked cancelled.
func (s *Service) CancelAnalysis(ctx context.Context, id string) error {
	s.mu.Lock()
	cancel, ok := s.running[id]
	s.mu.Unlock()
	if ok {
		s.logger.Info().Str("analysis_id", id).Msg("Cancelling analysis")
		cancel()
		return nil
	}

	record, err := s.GetAnalysis(ctx, id)
	if err != nil {
		return err
	}
	if record.Status.IsFinal() {
		return nil
	}
	now := time.Now()
	record.Status = models.AnalysisCancelled
	record.Error = "analysis cancelled"
	record.CompletedAt = &now
	return s.analyses.SaveAnalysis(ctx, record)
}

// IsRunning reports whether id has a live run in this process.
func (s *Service) IsRunning(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[id]
	return ok
}

// CancelAll cancels every running analysis and returns how many were running.
func (s *Service) CancelAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.running {
		cancel()
	}
	return len(s.running)
}
