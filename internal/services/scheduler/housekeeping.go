package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/common"
	"github.com/ternarybob/tickerchat/internal/interfaces"
)

const (
	ConversationSweepJob = "conversation_sweep"
	AnalysisRetentionJob = "analysis_retention"
)

// SweepConversations returns a job evicting expired and resolved
// conversations.
func SweepConversations(store interfaces.ConversationStore, clock interfaces.Clock) interfaces.JobHandler {
	if clock == nil {
		clock = time.Now
	}
	return func(ctx context.Context) error {
		store.Sweep(clock())
		return nil
	}
}

// PruneAnalyses returns a job deleting finished analyses older than
// retention.
func PruneAnalyses(analyses interfaces.AnalysisStorage, retention time.Duration, clock interfaces.Clock) interfaces.JobHandler {
	if clock == nil {
		clock = time.Now
	}
	return func(ctx context.Context) error {
		if _, err := analyses.DeleteAnalysesBefore(ctx, clock().Add(-retention)); err != nil {
			return fmt.Errorf("analysis retention: %w", err)
		}
		return nil
	}
}

// RegisterHousekeeping registers the conversation sweep and, when analyses
// are stored, the retention job.
func RegisterHousekeeping(s interfaces.SchedulerService, config *common.Config, store interfaces.ConversationStore, analyses interfaces.AnalysisStorage, logger arbor.ILogger) error {
	sweep := config.Conversation.SweepSchedule
	if sweep == "" {
		sweep = "@every 1m"
	}
	if err := s.RegisterJob(ConversationSweepJob, sweep, "Evict expired and resolved conversations", SweepConversations(store, nil)); err != nil {
		return err
	}

	if analyses == nil {
		return nil
	}
	retention := common.ParseDurationOr(config.Scheduler.Retention, 7*24*time.Hour)
	schedule := config.Scheduler.RetentionSchedule
	if schedule == "" {
		schedule = "0 0 * * * *"
	}
	if err := s.RegisterJob(AnalysisRetentionJob, schedule, "Delete finished analyses past retention", PruneAnalyses(analyses, retention, nil)); err != nil {
		return err
	}

	logger.Debug().
		Str("sweep_schedule", sweep).
		Str("retention_schedule", schedule).
		Dur("retention", retention).
		Msg("Housekeeping jobs registered")
	return nil
}
