package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/common"
	"github.com/ternarybob/tickerchat/internal/interfaces"
)

// Manager owns the database and the storages built on it
type Manager struct {
	db       *BadgerDB
	analyses *AnalysisStorage
	logger   arbor.ILogger
}

// NewManager opens the database and creates the storages.
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		analyses: NewAnalysisStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")
	return manager, nil
}

// AnalysisStorage returns the analysis record storage.
func (m *Manager) AnalysisStorage() interfaces.AnalysisStorage {
	return m.analyses
}

// Close closes the database.
func (m *Manager) Close() error {
	return m.db.Close()
}
