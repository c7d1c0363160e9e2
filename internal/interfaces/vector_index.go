package interfaces

import (
	"context"

	"github.com/ternarybob/echodoc/internal/models"
)

// SearchResult pairs a chunk with its similarity to the query vector
type SearchResult struct {
	Chunk      *models.DocumentChunk
	Similarity float64
}

// VectorIndex owns per-job embedding indexes and nearest-neighbor search.
// Indexes are keyed and isolated by job id; a rebuild replaces the job's
// index wholesale so it always reflects exactly the chunk set at last build.
type VectorIndex interface {
	// Index replaces the job's index with the given embedded chunks
	Index(ctx context.Context, jobID string, chunks []*models.DocumentChunk) error

	// Search returns the k most similar chunks, ties broken by ascending
	// chunk sequence. Returns a not_indexed error when the job has no index.
	Search(ctx context.Context, jobID string, embedding []float32, k int) ([]SearchResult, error)

	// HasIndex reports whether a non-empty index exists for the job
	HasIndex(jobID string) bool

	// Drop removes the job's index
	Drop(jobID string)
}
