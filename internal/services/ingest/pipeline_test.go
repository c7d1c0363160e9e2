package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/common"
	"github.com/ternarybob/echodoc/internal/interfaces"
	"github.com/ternarybob/echodoc/internal/models"
	"github.com/ternarybob/echodoc/internal/services/state"
	"github.com/ternarybob/echodoc/internal/services/vector"
	"github.com/ternarybob/echodoc/internal/services/workers"
	"github.com/ternarybob/echodoc/internal/storage/badger"
)

// fakeEmbedder embeds deterministically and fails on contents containing
// the configured marker
type fakeEmbedder struct {
	failOn string
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, errors.New("provider rejected input")
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (f *fakeEmbedder) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return f.GenerateEmbedding(ctx, query)
}

func (f *fakeEmbedder) EmbedChunk(ctx context.Context, chunk *models.DocumentChunk) error {
	embedding, err := f.GenerateEmbedding(ctx, chunk.Content)
	if err != nil {
		return err
	}
	chunk.Embedding = embedding
	return nil
}

type testEnv struct {
	pipeline *Pipeline
	storage  interfaces.StorageManager
	index    interfaces.VectorIndex
	pool     *workers.Pool
}

func newTestEnv(t *testing.T, embedder interfaces.EmbeddingService) *testEnv {
	t.Helper()

	tmpDir := t.TempDir()
	logger := arbor.NewLogger()

	storage, err := badger.NewManager(logger, &common.StorageConfig{
		Badger: common.BadgerConfig{Path: filepath.Join(tmpDir, "db")},
		Blobs:  common.BlobConfig{Dir: filepath.Join(tmpDir, "blobs")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	chunker, err := NewChunker(50)
	require.NoError(t, err)

	index := vector.NewMemoryIndex(logger)
	pool := workers.NewPool(2, logger)
	pool.Start()

	machine := state.NewMachine(storage, logger)
	pipeline := NewPipeline(storage, machine, embedder, index, chunker, pool, 1, logger)

	return &testEnv{pipeline: pipeline, storage: storage, index: index, pool: pool}
}

func TestIngestionCompletesJob(t *testing.T) {
	env := newTestEnv(t, &fakeEmbedder{})
	ctx := context.Background()

	job, err := env.pipeline.CreateJob(ctx, "manuals", []UploadedFile{
		{Name: "a.txt", Content: []byte("Document about installation.")},
		{Name: "b.txt", Content: []byte("Document about troubleshooting.")},
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, job.Status)

	env.pool.Wait()

	got, err := env.storage.Jobs().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 2, got.DocumentCount)
	assert.True(t, env.index.HasIndex(job.ID))

	chunks, err := env.storage.Chunks().GetChunks(ctx, job.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.True(t, chunk.Embedded())
	}
}

func TestIngestionFailsWhenNothingEmbeds(t *testing.T) {
	env := newTestEnv(t, &fakeEmbedder{failOn: "Document"})
	ctx := context.Background()

	job, err := env.pipeline.CreateJob(ctx, "manuals", []UploadedFile{
		{Name: "a.txt", Content: []byte("Document one.")},
		{Name: "b.txt", Content: []byte("Document two.")},
	})
	require.NoError(t, err)

	env.pool.Wait()

	got, err := env.storage.Jobs().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.NotEmpty(t, got.Error)
	assert.False(t, env.index.HasIndex(job.ID))
}

func TestIngestionPartialFailureStillCompletes(t *testing.T) {
	env := newTestEnv(t, &fakeEmbedder{failOn: "broken"})
	ctx := context.Background()

	job, err := env.pipeline.CreateJob(ctx, "manuals", []UploadedFile{
		{Name: "good.txt", Content: []byte("A perfectly fine document.")},
		{Name: "bad.txt", Content: []byte("A broken document.")},
	})
	require.NoError(t, err)

	env.pool.Wait()

	got, err := env.storage.Jobs().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	// Only the document with an embedded chunk counts
	assert.Equal(t, 1, got.DocumentCount)

	logs, err := env.storage.JobLogs().GetLogs(ctx, job.ID)
	require.NoError(t, err)
	var events []string
	for _, entry := range logs {
		events = append(events, entry.EventType)
	}
	assert.Contains(t, events, models.EventChunkFailed)
	assert.Contains(t, events, models.EventChunkIndexed)
}

func TestCreateJobValidation(t *testing.T) {
	env := newTestEnv(t, &fakeEmbedder{})
	ctx := context.Background()

	_, err := env.pipeline.CreateJob(ctx, "", []UploadedFile{{Name: "a.txt", Content: []byte("x")}})
	assert.True(t, models.IsKind(err, models.ErrKindValidation))

	_, err = env.pipeline.CreateJob(ctx, "manuals", nil)
	assert.True(t, models.IsKind(err, models.ErrKindValidation))

	_, err = env.pipeline.CreateJob(ctx, "manuals", []UploadedFile{{Name: "a.txt"}})
	assert.True(t, models.IsKind(err, models.ErrKindValidation))

	_, err = env.pipeline.CreateJob(ctx, "manuals", []UploadedFile{
		{Name: "a.txt", Content: []byte("x")},
		{Name: "a.txt", Content: []byte("y")},
	})
	assert.True(t, models.IsKind(err, models.ErrKindValidation))
}

func TestRebuildIndex(t *testing.T) {
	env := newTestEnv(t, &fakeEmbedder{})
	ctx := context.Background()

	job, err := env.pipeline.CreateJob(ctx, "manuals", []UploadedFile{
		{Name: "a.txt", Content: []byte("Document about installation.")},
	})
	require.NoError(t, err)
	env.pool.Wait()

	// Simulate a restart by dropping the in-memory index
	env.index.Drop(job.ID)
	assert.False(t, env.index.HasIndex(job.ID))

	require.NoError(t, env.pipeline.RebuildIndex(ctx, job.ID))
	assert.True(t, env.index.HasIndex(job.ID))
}
