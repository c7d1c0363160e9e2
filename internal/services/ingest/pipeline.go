package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/interfaces"
	"github.com/ternarybob/echodoc/internal/models"
	"github.com/ternarybob/echodoc/internal/services/llm"
	"github.com/ternarybob/echodoc/internal/services/state"
	"github.com/ternarybob/echodoc/internal/services/workers"
)

// UploadedFile is one document received in an upload batch
type UploadedFile struct {
	Name    string
	Content []byte
}

// Pipeline runs document ingestion: it creates the job, then in the
// background chunks each document, embeds the chunks, persists them,
// and builds the job's retrieval index.
//
// A document counts toward DocumentCount when at least one of its
// chunks embedded successfully. The job fails only when no document
// produced a single embedded chunk.
type Pipeline struct {
	storage    interfaces.StorageManager
	machine    *state.Machine
	embedder   interfaces.EmbeddingService
	index      interfaces.VectorIndex
	chunker    *Chunker
	pool       *workers.Pool
	maxRetries int
	logger     arbor.ILogger
}

// NewPipeline creates an ingestion pipeline
func NewPipeline(
	storage interfaces.StorageManager,
	machine *state.Machine,
	embedder interfaces.EmbeddingService,
	index interfaces.VectorIndex,
	chunker *Chunker,
	pool *workers.Pool,
	maxRetries int,
	logger arbor.ILogger,
) *Pipeline {
	return &Pipeline{
		storage:    storage,
		machine:    machine,
		embedder:   embedder,
		index:      index,
		chunker:    chunker,
		pool:       pool,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// CreateJob validates the upload, persists the job and raw documents,
// and schedules background processing. The returned job is the caller's
// poll handle; processing continues after this returns.
func (p *Pipeline) CreateJob(ctx context.Context, name string, files []UploadedFile) (*models.Job, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("job name is required")
	}
	if len(files) == 0 {
		return nil, models.NewValidationError("at least one file is required")
	}

	seen := make(map[string]bool, len(files))
	for _, file := range files {
		if strings.TrimSpace(file.Name) == "" {
			return nil, models.NewValidationError("file name is required")
		}
		if len(file.Content) == 0 {
			return nil, models.NewValidationError("file %q is empty", file.Name)
		}
		if seen[file.Name] {
			return nil, models.NewValidationError("duplicate file name: %s", file.Name)
		}
		seen[file.Name] = true
	}

	job, err := p.machine.CreateJob(ctx, name, len(files))
	if err != nil {
		return nil, err
	}

	// Keep the raw uploads so processing survives a restart mid-batch
	for _, file := range files {
		if _, err := p.storage.Blobs().Put(ctx, job.ID, file.Name, file.Content); err != nil {
			p.logger.Warn().Err(err).Str("job_id", job.ID).Str("file", file.Name).Msg("Failed to store upload blob")
		}
	}

	batch := make([]UploadedFile, len(files))
	copy(batch, files)

	if err := p.pool.Submit(func(taskCtx context.Context) error {
		return p.process(taskCtx, job.ID, batch)
	}); err != nil {
		// Pool is shutting down; fail the job rather than leave it processing forever
		_ = p.machine.FailJob(ctx, job.ID, "ingestion could not be scheduled")
		return nil, fmt.Errorf("failed to schedule ingestion: %w", err)
	}

	return job, nil
}

// process runs the full ingestion for one job
func (p *Pipeline) process(ctx context.Context, jobID string, files []UploadedFile) error {
	var embedded []*models.DocumentChunk
	documentsWithChunks := 0
	seq := 0

	for _, file := range files {
		pieces := p.chunker.Chunk(string(file.Content))
		if len(pieces) == 0 {
			p.machine.AppendEvent(ctx, jobID, models.EventChunkFailed,
				fmt.Sprintf("document %s produced no chunks", file.Name))
			continue
		}

		fileEmbedded := 0
		for _, piece := range pieces {
			chunk := models.NewDocumentChunk(jobID, seq, file.Name, piece)
			seq++

			if err := p.embedWithRetry(ctx, chunk); err != nil {
				p.machine.AppendEvent(ctx, jobID, models.EventChunkFailed,
					fmt.Sprintf("chunk %d of %s: %v", chunk.Seq, file.Name, err))
				p.logger.Warn().Err(err).Str("job_id", jobID).Str("file", file.Name).Int("seq", chunk.Seq).Msg("Chunk embedding failed")
				continue
			}

			embedded = append(embedded, chunk)
			fileEmbedded++
		}

		if fileEmbedded > 0 {
			documentsWithChunks++
			p.machine.AppendEvent(ctx, jobID, models.EventChunkIndexed,
				fmt.Sprintf("document %s: %d of %d chunks embedded", file.Name, fileEmbedded, len(pieces)))
		}
	}

	if documentsWithChunks == 0 {
		return p.machine.FailJob(ctx, jobID, "no document produced an embedded chunk")
	}

	if err := p.storage.Chunks().SaveChunks(ctx, embedded); err != nil {
		return p.machine.FailJob(ctx, jobID, fmt.Sprintf("failed to persist chunks: %v", err))
	}

	if err := p.index.Index(ctx, jobID, embedded); err != nil {
		return p.machine.FailJob(ctx, jobID, fmt.Sprintf("failed to build index: %v", err))
	}

	return p.machine.CompleteJob(ctx, jobID, documentsWithChunks)
}

// embedWithRetry embeds a chunk, retrying transient provider errors a
// bounded number of times. Non-transient errors fail immediately.
func (p *Pipeline) embedWithRetry(ctx context.Context, chunk *models.DocumentChunk) error {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		lastErr = p.embedder.EmbedChunk(ctx, chunk)
		if lastErr == nil {
			return nil
		}
		if !llm.IsTransientError(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// RebuildIndex reloads a completed job's chunks from storage and
// rebuilds its in-memory index. Called at startup for every completed
// job so retrieval survives restarts.
func (p *Pipeline) RebuildIndex(ctx context.Context, jobID string) error {
	chunks, err := p.storage.Chunks().GetChunks(ctx, jobID)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return models.NewNotIndexedError("job %s has no persisted chunks", jobID)
	}
	return p.index.Index(ctx, jobID, chunks)
}
