package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/common"
	"github.com/ternarybob/tickerchat/internal/conversation"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
	"github.com/ternarybob/tickerchat/internal/storage/badger"
)

func waitIdle(t *testing.T, s *Service, name string) *interfaces.JobStatus {
	t.Helper()
	var status *interfaces.JobStatus
	require.Eventually(t, func() bool {
		var err error
		status, err = s.GetJobStatus(name)
		return err == nil && status.LastRun != nil && !status.IsRunning
	}, 3*time.Second, 10*time.Millisecond)
	return status
}

func TestRegisterJob_Validation(t *testing.T) {
	s := NewService(arbor.NewLogger())
	noop := func(ctx context.Context) error { return nil }

	assert.Error(t, s.RegisterJob("bad", "not a schedule", "", noop))
	assert.Error(t, s.RegisterJob("nil", "@every 1m", "", nil))
	require.NoError(t, s.RegisterJob("ok", "@every 1m", "noop", noop))
	assert.Error(t, s.RegisterJob("ok", "@every 1m", "again", noop))

	statuses := s.GetAllJobStatuses()
	require.Contains(t, statuses, "ok")
	assert.Equal(t, "noop", statuses["ok"].Description)
	assert.True(t, statuses["ok"].Enabled)
}

func TestTriggerJob_RecordsOutcome(t *testing.T) {
	s := NewService(arbor.NewLogger())

	var calls atomic.Int32
	require.NoError(t, s.RegisterJob("flaky", "@every 1h", "", func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("first run fails")
		}
		return nil
	}))

	require.NoError(t, s.TriggerJob("flaky"))
	status := waitIdle(t, s, "flaky")
	assert.Equal(t, "first run fails", status.LastError)

	require.NoError(t, s.TriggerJob("flaky"))
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 3*time.Second, 10*time.Millisecond)
	status = waitIdle(t, s, "flaky")
	assert.Empty(t, status.LastError)

	assert.Error(t, s.TriggerJob("missing"))
}

func TestTriggerJob_RecoversPanic(t *testing.T) {
	s := NewService(arbor.NewLogger())
	require.NoError(t, s.RegisterJob("panics", "@every 1h", "", func(ctx context.Context) error {
		panic("boom")
	}))

	require.NoError(t, s.TriggerJob("panics"))
	status := waitIdle(t, s, "panics")
	assert.Contains(t, status.LastError, "boom")
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	s := NewService(arbor.NewLogger())
	var calls atomic.Int32
	require.NoError(t, s.RegisterJob("tick", "@every 1s", "", func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}))

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())

	status, err := s.GetJobStatus("tick")
	require.NoError(t, err)
	assert.NotNil(t, status.NextRun)

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop())
}

func TestEnableDisableJob(t *testing.T) {
	s := NewService(arbor.NewLogger())
	require.NoError(t, s.RegisterJob("job", "@every 1m", "", func(ctx context.Context) error { return nil }))

	require.NoError(t, s.DisableJob("job"))
	status, err := s.GetJobStatus("job")
	require.NoError(t, err)
	assert.False(t, status.Enabled)
	assert.Nil(t, status.NextRun)

	require.NoError(t, s.EnableJob("job"))
	status, err = s.GetJobStatus("job")
	require.NoError(t, err)
	assert.True(t, status.Enabled)

	assert.Error(t, s.EnableJob("missing"))
	assert.Error(t, s.DisableJob("missing"))
}

func TestSweepConversations(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := conversation.NewStore(30*time.Minute, arbor.NewLogger(), conversation.WithClock(clock))

	_, err := store.Create(context.Background(), "Analyze matae")
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	later := func() time.Time { return now.Add(time.Hour) }
	require.NoError(t, SweepConversations(store, later)(context.Background()))
	assert.Equal(t, 0, store.Len())
}

func TestPruneAnalyses(t *testing.T) {
	logger := arbor.NewLogger()
	manager, err := badger.NewManager(logger, &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer manager.Close()

	ctx := context.Background()
	analyses := manager.AnalysisStorage()
	require.NoError(t, analyses.SaveAnalysis(ctx, &models.AnalysisRecord{
		ID:        "ana_done",
		Status:    models.AnalysisCompleted,
		StartedAt: time.Now(),
	}))

	// Nothing is old enough yet.
	require.NoError(t, PruneAnalyses(analyses, time.Hour, nil)(ctx))
	count, err := analyses.CountAnalyses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	future := func() time.Time { return time.Now().Add(2 * time.Hour) }
	require.NoError(t, PruneAnalyses(analyses, time.Hour, future)(ctx))
	count, err = analyses.CountAnalyses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRegisterHousekeeping(t *testing.T) {
	logger := arbor.NewLogger()
	s := NewService(logger)
	config := common.NewDefaultConfig()
	store := conversation.NewStore(0, logger)

	manager, err := badger.NewManager(logger, &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer manager.Close()

	require.NoError(t, RegisterHousekeeping(s, config, store, manager.AnalysisStorage(), logger))
	statuses := s.GetAllJobStatuses()
	assert.Contains(t, statuses, ConversationSweepJob)
	assert.Contains(t, statuses, AnalysisRetentionJob)

	bare := NewService(logger)
	require.NoError(t, RegisterHousekeeping(bare, config, store, nil, logger))
	assert.Len(t, bare.GetAllJobStatuses(), 1)
}
