package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// AnalysisStorage implements interfaces.AnalysisStorage for Badger
type AnalysisStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	// mu serialises read-modify-write updates of a record.
	mu sync.Mutex
	now func() time.Time
}

var _ interfaces.AnalysisStorage = (*AnalysisStorage)(nil)

// NewAnalysisStorage creates a new AnalysisStorage instance
func NewAnalysisStorage(db *BadgerDB, logger arbor.ILogger) *AnalysisStorage {
	return &AnalysisStorage{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// SaveAnalysis inserts or replaces a record.
func (s *AnalysisStorage) SaveAnalysis(ctx context.Context, record *models.AnalysisRecord) error {
	if record.ID == "" {
		return fmt.Errorf("analysis ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(record)
}

func (s *AnalysisStorage) save(record *models.AnalysisRecord) error {
	record.UpdatedAt = s.now()
	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// GetAnalysis returns interfaces.ErrAnalysisNotFound for unknown ids.
func (s *AnalysisStorage) GetAnalysis(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	var record models.AnalysisRecord
	if err := s.db.Store().Get(id, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrAnalysisNotFound, id)
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return &record, nil
}

// ListAnalyses returns records newest first.
func (s *AnalysisStorage) ListAnalyses(ctx context.Context, opts *interfaces.AnalysisListOptions) ([]*models.AnalysisRecord, error) {
	query := badgerhold.Where("ID").Ne("")
	if opts != nil && opts.Status != "" {
		query = badgerhold.Where("Status").Eq(opts.Status).Index("Status")
	}
	query = query.SortBy("StartedAt").Reverse()
	if opts != nil {
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
	}

	var records []models.AnalysisRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	result := make([]*models.AnalysisRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

// UpdateAnalysisProgress records progress for a running analysis. Final
// records are left untouched.
func (s *AnalysisStorage) UpdateAnalysisProgress(ctx context.Context, id string, progress float64, step string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.GetAnalysis(ctx, id)
	if err != nil {
		return err
	}
	if record.Status.IsFinal() {
		return nil
	}
	record.Progress = progress
	record.CurrentStep = step
	return s.save(record)
}

// DeleteAnalysis removes a record. Unknown ids are not an error.
func (s *AnalysisStorage) DeleteAnalysis(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.AnalysisRecord{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	return nil
}

// CountAnalyses returns the number of stored records.
func (s *AnalysisStorage) CountAnalyses(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.AnalysisRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}
	return int(count), nil
}

// DeleteAnalysesBefore removes final records last updated before cutoff.
func (s *AnalysisStorage) DeleteAnalysesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []models.AnalysisRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("UpdatedAt").Lt(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to find expired analyses: %w", err)
	}

	deleted := 0
	for _, record := range records {
		if !record.Status.IsFinal() {
			continue
		}
		if err := s.db.Store().Delete(record.ID, &models.AnalysisRecord{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
			return deleted, fmt.Errorf("failed to delete analysis %s: %w", record.ID, err)
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Info().
			Int("deleted", deleted).
			Str("cutoff", cutoff.Format(time.RFC3339)).
			Msg("Expired analyses removed")
	}
	return deleted, nil
}
