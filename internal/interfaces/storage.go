package interfaces

import (
	"context"

	"github.com/ternarybob/echodoc/internal/models"
)

// JobStorage persists job records
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	ListJobs(ctx context.Context) ([]*models.Job, error)
}

// ChunkStorage persists document chunks
type ChunkStorage interface {
	SaveChunks(ctx context.Context, chunks []*models.DocumentChunk) error
	// GetChunks returns a job's chunks ordered by sequence ascending
	GetChunks(ctx context.Context, jobID string) ([]*models.DocumentChunk, error)
	CountChunks(ctx context.Context, jobID string) (int, error)
}

// JobLogStorage is the append-only job activity trail
type JobLogStorage interface {
	AppendLog(ctx context.Context, entry models.JobLogEntry) error
	// GetLogs returns a job's log entries ordered by timestamp ascending
	GetLogs(ctx context.Context, jobID string) ([]models.JobLogEntry, error)
	CountLogs(ctx context.Context, jobID string) (int, error)
}

// FineTuneStorage persists fine-tune submission records
type FineTuneStorage interface {
	SaveRecord(ctx context.Context, record *models.FineTuneRecord) error
	// GetRecordByJob returns the job's fine-tune record, or a not_found error
	GetRecordByJob(ctx context.Context, jobID string) (*models.FineTuneRecord, error)
}

// BlobStorage stores opaque per-job blobs (uploaded documents, training
// datasets). Keys are scoped by job id; the store never interprets content.
type BlobStorage interface {
	Put(ctx context.Context, jobID, filename string, data []byte) (string, error)
	Get(ctx context.Context, jobID, filename string) ([]byte, error)
}

// StorageManager bundles the storage backends behind one handle
type StorageManager interface {
	Jobs() JobStorage
	Chunks() ChunkStorage
	JobLogs() JobLogStorage
	FineTunes() FineTuneStorage
	Blobs() BlobStorage
	Close() error
}
