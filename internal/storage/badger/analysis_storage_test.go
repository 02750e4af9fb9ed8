package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/common"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func newTestStorage(t *testing.T) *AnalysisStorage {
	t.Helper()

	options := badgerhold.DefaultOptions
	options.Dir = t.TempDir()
	options.ValueDir = options.Dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	db := &BadgerDB{store: store}
	return NewAnalysisStorage(db, arbor.NewLogger())
}

func record(id string, status models.AnalysisStatus, started time.Time) *models.AnalysisRecord {
	return &models.AnalysisRecord{
		ID:        id,
		Query:     "research " + id,
		Tickers:   []string{"META"},
		Status:    status,
		StartedAt: started,
	}
}

func TestAnalysisStorage_SaveAndGet(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	price := 612.5
	rec := record("ana_1", models.AnalysisCompleted, time.Now())
	rec.Result = &models.OrchestrationResult{
		Outcomes: []models.PipelineOutcome{{
			Ticker:  "META",
			Insight: &models.TickerInsight{Ticker: "META", CurrentPrice: &price, Stance: models.StanceBuy},
		}},
	}
	require.NoError(t, storage.SaveAnalysis(ctx, rec))

	got, err := storage.GetAnalysis(ctx, "ana_1")
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisCompleted, got.Status)
	require.NotNil(t, got.Result)
	require.Len(t, got.Result.Outcomes, 1)
	assert.Equal(t, 612.5, *got.Result.Outcomes[0].Insight.CurrentPrice)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestAnalysisStorage_SaveRequiresID(t *testing.T) {
	storage := newTestStorage(t)
	err := storage.SaveAnalysis(context.Background(), &models.AnalysisRecord{})
	assert.Error(t, err)
}

func TestAnalysisStorage_GetNotFound(t *testing.T) {
	storage := newTestStorage(t)
	_, err := storage.GetAnalysis(context.Background(), "ana_missing")
	assert.ErrorIs(t, err, interfaces.ErrAnalysisNotFound)
}

func TestAnalysisStorage_ListNewestFirst(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, storage.SaveAnalysis(ctx, record("ana_a", models.AnalysisCompleted, base)))
	require.NoError(t, storage.SaveAnalysis(ctx, record("ana_b", models.AnalysisProcessing, base.Add(time.Minute))))
	require.NoError(t, storage.SaveAnalysis(ctx, record("ana_c", models.AnalysisFailed, base.Add(2*time.Minute))))

	all, err := storage.ListAnalyses(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ana_c", all[0].ID)
	assert.Equal(t, "ana_b", all[1].ID)
	assert.Equal(t, "ana_a", all[2].ID)

	page, err := storage.ListAnalyses(ctx, &interfaces.AnalysisListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "ana_b", page[0].ID)

	processing, err := storage.ListAnalyses(ctx, &interfaces.AnalysisListOptions{Status: models.AnalysisProcessing})
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, "ana_b", processing[0].ID)

	count, err := storage.CountAnalyses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestAnalysisStorage_UpdateProgress(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveAnalysis(ctx, record("ana_run", models.AnalysisProcessing, time.Now())))
	require.NoError(t, storage.UpdateAnalysisProgress(ctx, "ana_run", 0.5, "META completed"))

	got, err := storage.GetAnalysis(ctx, "ana_run")
	require.NoError(t, err)
	assert.Equal(t, 0.5, got.Progress)
	assert.Equal(t, "META completed", got.CurrentStep)

	// Final records keep their last progress.
	require.NoError(t, storage.SaveAnalysis(ctx, record("ana_done", models.AnalysisCompleted, time.Now())))
	require.NoError(t, storage.UpdateAnalysisProgress(ctx, "ana_done", 0.2, "late"))
	done, err := storage.GetAnalysis(ctx, "ana_done")
	require.NoError(t, err)
	assert.Equal(t, 0.0, done.Progress)
	assert.Empty(t, done.CurrentStep)

	err = storage.UpdateAnalysisProgress(ctx, "ana_missing", 1, "x")
	assert.ErrorIs(t, err, interfaces.ErrAnalysisNotFound)
}

func TestAnalysisStorage_Delete(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveAnalysis(ctx, record("ana_del", models.AnalysisCompleted, time.Now())))
	require.NoError(t, storage.DeleteAnalysis(ctx, "ana_del"))
	require.NoError(t, storage.DeleteAnalysis(ctx, "ana_del"))

	_, err := storage.GetAnalysis(ctx, "ana_del")
	assert.ErrorIs(t, err, interfaces.ErrAnalysisNotFound)
}

func TestAnalysisStorage_DeleteAnalysesBefore(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	storage.now = func() time.Time { return old }
	require.NoError(t, storage.SaveAnalysis(ctx, record("ana_old_done", models.AnalysisCompleted, old)))
	require.NoError(t, storage.SaveAnalysis(ctx, record("ana_old_running", models.AnalysisProcessing, old)))

	storage.now = func() time.Time { return old.Add(48 * time.Hour) }
	require.NoError(t, storage.SaveAnalysis(ctx, record("ana_new", models.AnalysisCompleted, old)))

	deleted, err := storage.DeleteAnalysesBefore(ctx, old.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = storage.GetAnalysis(ctx, "ana_old_done")
	assert.ErrorIs(t, err, interfaces.ErrAnalysisNotFound)
	_, err = storage.GetAnalysis(ctx, "ana_old_running")
	assert.NoError(t, err)
	_, err = storage.GetAnalysis(ctx, "ana_new")
	assert.NoError(t, err)
}

func TestNewManager_InMemory(t *testing.T) {
	manager, err := NewManager(arbor.NewLogger(), &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer manager.Close()

	ctx := context.Background()
	require.NoError(t, manager.AnalysisStorage().SaveAnalysis(ctx, record("ana_mem", models.AnalysisProcessing, time.Now())))
	count, err := manager.AnalysisStorage().CountAnalyses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
