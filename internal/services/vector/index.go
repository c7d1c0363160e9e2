package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/interfaces"
	"github.com/ternarybob/echodoc/internal/models"
)

// MemoryIndex is an in-memory per-job vector index using brute-force
// cosine similarity search. Each job owns an isolated index; rebuilding
// replaces the job's entries wholesale.
type MemoryIndex struct {
	jobs   map[string][]*models.DocumentChunk
	mu     sync.RWMutex
	logger arbor.ILogger
}

// NewMemoryIndex creates an empty per-job vector index
func NewMemoryIndex(logger arbor.ILogger) interfaces.VectorIndex {
	return &MemoryIndex{
		jobs:   make(map[string][]*models.DocumentChunk),
		logger: logger,
	}
}

func (m *MemoryIndex) Index(ctx context.Context, jobID string, chunks []*models.DocumentChunk) error {
	if jobID == "" {
		return models.NewValidationError("job id is required")
	}

	entries := make([]*models.DocumentChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if !chunk.Embedded() {
			return models.NewValidationError("chunk %s has no embedding", chunk.ID)
		}
		entries = append(entries, chunk)
	}

	// Deterministic base order so equal-similarity results tie-break by sequence
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Seq < entries[j].Seq
	})

	m.mu.Lock()
	m.jobs[jobID] = entries
	m.mu.Unlock()

	m.logger.Debug().Str("job_id", jobID).Int("chunks", len(entries)).Msg("Vector index built")
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, jobID string, embedding []float32, k int) ([]interfaces.SearchResult, error) {
	m.mu.RLock()
	entries, ok := m.jobs[jobID]
	m.mu.RUnlock()

	if !ok || len(entries) == 0 {
		return nil, models.NewNotIndexedError("no index for job: %s", jobID)
	}
	if len(embedding) == 0 {
		return nil, models.NewValidationError("query embedding is empty")
	}
	if k <= 0 {
		return nil, nil
	}

	results := make([]interfaces.SearchResult, 0, len(entries))
	for _, chunk := range entries {
		results = append(results, interfaces.SearchResult{
			Chunk:      chunk,
			Similarity: CosineSimilarity(embedding, chunk.Embedding),
		})
	}

	// Entries are already in ascending sequence order, so a stable sort
	// preserves that order among equal similarities
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func (m *MemoryIndex) HasIndex(jobID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs[jobID]) > 0
}

func (m *MemoryIndex) Drop(jobID string) {
	m.mu.Lock()
	delete(m.jobs, jobID)
	m.mu.Unlock()
}

// CosineSimilarity returns the cosine similarity of two vectors, 0 when
// either has zero magnitude or lengths differ
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
