package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/common"
	"github.com/ternarybob/echodoc/internal/interfaces"
	"github.com/ternarybob/echodoc/internal/storage/blob"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db        *BadgerDB
	jobs      interfaces.JobStorage
	chunks    interfaces.ChunkStorage
	jobLogs   interfaces.JobLogStorage
	fineTunes interfaces.FineTuneStorage
	blobs     interfaces.BlobStorage
	logger    arbor.ILogger
}

// NewManager creates a new Badger storage manager with a filesystem blob store
func NewManager(logger arbor.ILogger, config *common.StorageConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, &config.Badger)
	if err != nil {
		return nil, err
	}

	blobs, err := blob.NewStore(config.Blobs.Dir, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	manager := &Manager{
		db:        db,
		jobs:      NewJobStorage(db, logger),
		chunks:    NewChunkStorage(db, logger),
		jobLogs:   NewJobLogStorage(db, logger),
		fineTunes: NewFineTuneStorage(db, logger),
		blobs:     blobs,
		logger:    logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// Jobs returns the job storage interface
func (m *Manager) Jobs() interfaces.JobStorage {
	return m.jobs
}

// Chunks returns the chunk storage interface
func (m *Manager) Chunks() interfaces.ChunkStorage {
	return m.chunks
}

// JobLogs returns the job log storage interface
func (m *Manager) JobLogs() interfaces.JobLogStorage {
	return m.jobLogs
}

// FineTunes returns the fine-tune record storage interface
func (m *Manager) FineTunes() interfaces.FineTuneStorage {
	return m.fineTunes
}

// Blobs returns the blob storage interface
func (m *Manager) Blobs() interfaces.BlobStorage {
	return m.blobs
}

// Close closes the underlying database
func (m *Manager) Close() error {
	m.logger.Debug().Msg("Closing Badger storage manager")
	return m.db.Close()
}
