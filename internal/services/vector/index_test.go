package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/models"
)

func chunkWithEmbedding(jobID string, seq int, embedding []float32) *models.DocumentChunk {
	chunk := models.NewDocumentChunk(jobID, seq, "doc.txt", "content")
	chunk.Embedding = embedding
	return chunk
}

func TestSearchRanksBySimilarity(t *testing.T) {
	index := NewMemoryIndex(arbor.NewLogger())
	ctx := context.Background()

	chunks := []*models.DocumentChunk{
		chunkWithEmbedding("job_a", 0, []float32{1, 0, 0}),
		chunkWithEmbedding("job_a", 1, []float32{0, 1, 0}),
		chunkWithEmbedding("job_a", 2, []float32{0.9, 0.1, 0}),
	}
	require.NoError(t, index.Index(ctx, "job_a", chunks))

	results, err := index.Search(ctx, "job_a", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Chunk.Seq)
	assert.Equal(t, 2, results[1].Chunk.Seq)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestSearchTieBreaksBySequence(t *testing.T) {
	index := NewMemoryIndex(arbor.NewLogger())
	ctx := context.Background()

	// Identical embeddings: order must fall back to ascending sequence
	chunks := []*models.DocumentChunk{
		chunkWithEmbedding("job_a", 2, []float32{1, 0}),
		chunkWithEmbedding("job_a", 0, []float32{1, 0}),
		chunkWithEmbedding("job_a", 1, []float32{1, 0}),
	}
	require.NoError(t, index.Index(ctx, "job_a", chunks))

	results, err := index.Search(ctx, "job_a", []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, result := range results {
		assert.Equal(t, i, result.Chunk.Seq)
	}
}

func TestSearchNotIndexed(t *testing.T) {
	index := NewMemoryIndex(arbor.NewLogger())

	_, err := index.Search(context.Background(), "job_missing", []float32{1, 0}, 5)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrKindNotIndexed))
}

func TestJobIsolation(t *testing.T) {
	index := NewMemoryIndex(arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, index.Index(ctx, "job_a", []*models.DocumentChunk{
		chunkWithEmbedding("job_a", 0, []float32{1, 0}),
	}))
	require.NoError(t, index.Index(ctx, "job_b", []*models.DocumentChunk{
		chunkWithEmbedding("job_b", 0, []float32{0, 1}),
	}))

	results, err := index.Search(ctx, "job_a", []float32{0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "job_a", results[0].Chunk.JobID)
}

func TestIndexRejectsUnembeddedChunk(t *testing.T) {
	index := NewMemoryIndex(arbor.NewLogger())

	err := index.Index(context.Background(), "job_a", []*models.DocumentChunk{
		models.NewDocumentChunk("job_a", 0, "doc.txt", "no embedding"),
	})
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrKindValidation))
}

func TestDropRemovesIndex(t *testing.T) {
	index := NewMemoryIndex(arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, index.Index(ctx, "job_a", []*models.DocumentChunk{
		chunkWithEmbedding("job_a", 0, []float32{1, 0}),
	}))
	assert.True(t, index.HasIndex("job_a"))

	index.Drop("job_a")
	assert.False(t, index.HasIndex("job_a"))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
