package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/interfaces"
	"github.com/ternarybob/echodoc/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// FineTuneStorage implements the FineTuneStorage interface for Badger
type FineTuneStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewFineTuneStorage creates a new FineTuneStorage instance
func NewFineTuneStorage(db *BadgerDB, logger arbor.ILogger) interfaces.FineTuneStorage {
	return &FineTuneStorage{
		db:     db,
		logger: logger,
	}
}

func (s *FineTuneStorage) SaveRecord(ctx context.Context, record *models.FineTuneRecord) error {
	if record.ID == "" {
		return models.NewValidationError("fine-tune record id is required")
	}
	if record.JobID == "" {
		return models.NewValidationError("fine-tune record requires a job id")
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save fine-tune record: %w", err)
	}
	return nil
}

func (s *FineTuneStorage) GetRecordByJob(ctx context.Context, jobID string) (*models.FineTuneRecord, error) {
	var records []models.FineTuneRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return nil, fmt.Errorf("failed to find fine-tune record: %w", err)
	}
	if len(records) == 0 {
		return nil, models.NewNotFoundError("no fine-tune record for job: %s", jobID)
	}
	return &records[0], nil
}
