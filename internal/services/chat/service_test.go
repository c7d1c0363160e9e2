package chat

import (
	"context"
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
	"github.com/ternarybob/echodoc/internal/storage/badger"
)

// fakeLLM records the last prompt and model it was asked to generate with
type fakeLLM struct {
	lastPrompt string
	lastModel  string
	answer     string
}

func (f *fakeLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f *fakeLLM) Generate(ctx context.Context, messages []interfaces.Message, model string) (string, error) {
	f.lastPrompt = messages[len(messages)-1].Content
	f.lastModel = model
	if f.answer == "" {
		return "generated answer", nil
	}
	return f.answer, nil
}

func (f *fakeLLM) CreateFineTune(ctx context.Context, dataset []byte, baseModel string) (string, error) {
	return "ftjob-fake", nil
}

func (f *fakeLLM) GetFineTune(ctx context.Context, handle string) (*interfaces.FineTuneJob, error) {
	return &interfaces.FineTuneJob{Handle: handle, State: interfaces.FineTuneStateSucceeded}, nil
}

func (f *fakeLLM) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeLLM) Close() error                          { return nil }

type fakeEmbedder struct{}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EmbedChunk(ctx context.Context, chunk *models.DocumentChunk) error {
	chunk.Embedding = []float32{1, 0}
	return nil
}

type chatEnv struct {
	service interfaces.ChatService
	machine *state.Machine
	storage interfaces.StorageManager
	index   interfaces.VectorIndex
	llm     *fakeLLM
}

func newChatEnv(t *testing.T) *chatEnv {
	t.Helper()

	tmpDir := t.TempDir()
	logger := arbor.NewLogger()

	storage, err := badger.NewManager(logger, &common.StorageConfig{
		Badger: common.BadgerConfig{Path: filepath.Join(tmpDir, "db")},
		Blobs:  common.BlobConfig{Dir: filepath.Join(tmpDir, "blobs")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	llm := &fakeLLM{}
	index := vector.NewMemoryIndex(logger)
	machine := state.NewMachine(storage, logger)
	service := NewService(storage, &fakeEmbedder{}, index, llm, 5, 0, logger)

	return &chatEnv{service: service, machine: machine, storage: storage, index: index, llm: llm}
}

// completedJob creates a job in completed state with an indexed chunk set
func (e *chatEnv) completedJob(t *testing.T, chunkContents ...string) *models.Job {
	t.Helper()
	ctx := context.Background()

	job, err := e.machine.CreateJob(ctx, "manuals", 1)
	require.NoError(t, err)
	require.NoError(t, e.machine.CompleteJob(ctx, job.ID, 1))

	if len(chunkContents) > 0 {
		chunks := make([]*models.DocumentChunk, len(chunkContents))
		for i, content := range chunkContents {
			chunks[i] = models.NewDocumentChunk(job.ID, i, "doc.txt", content)
			chunks[i].Embedding = []float32{1, float32(i) * 0.01}
		}
		require.NoError(t, e.index.Index(ctx, job.ID, chunks))
	}

	updated, err := e.storage.Jobs().GetJob(ctx, job.ID)
	require.NoError(t, err)
	return updated
}

func (e *chatEnv) finishFineTune(t *testing.T, jobID, modelID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.machine.MarkFineTuneQueued(ctx, jobID))
	require.NoError(t, e.machine.MarkFineTuneRunning(ctx, jobID))
	require.NoError(t, e.machine.MarkFineTuneSucceeded(ctx, jobID, modelID))
}

func TestRAGInjectsContext(t *testing.T) {
	env := newChatEnv(t)
	job := env.completedJob(t, "The widget requires a 9V battery.", "Widgets ship in blue boxes.")

	resp, err := env.service.Chat(context.Background(), job.ID, "What battery does the widget need?", models.ChatModeRAG)
	require.NoError(t, err)

	assert.Equal(t, "generated answer", resp.Answer)
	assert.Equal(t, 2, resp.ContextChunks)
	assert.Empty(t, resp.Model) // default chat model
	assert.Contains(t, env.llm.lastPrompt, "Based on the following context")
	assert.Contains(t, env.llm.lastPrompt, "The widget requires a 9V battery.")
	assert.Contains(t, env.llm.lastPrompt, "What battery does the widget need?")
}

func TestChatOnProcessingJobIsIllegal(t *testing.T) {
	env := newChatEnv(t)
	ctx := context.Background()

	job, err := env.machine.CreateJob(ctx, "manuals", 1)
	require.NoError(t, err)

	_, err = env.service.Chat(ctx, job.ID, "hello", models.ChatModeRAG)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrKindIllegalTransition))
	assert.Contains(t, err.Error(), string(models.JobStatusProcessing))
}

func TestRAFTRequiresFineTune(t *testing.T) {
	env := newChatEnv(t)
	job := env.completedJob(t, "chunk content")

	_, err := env.service.Chat(context.Background(), job.ID, "hello", models.ChatModeRAFT)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrKindIllegalTransition))
	// No capability call was made
	assert.Empty(t, env.llm.lastPrompt)
}

func TestRAFTUsesFineTunedModelWithContext(t *testing.T) {
	env := newChatEnv(t)
	job := env.completedJob(t, "chunk content")
	env.finishFineTune(t, job.ID, "ft:gpt-4o-mini:acme::abc")

	resp, err := env.service.Chat(context.Background(), job.ID, "hello", models.ChatModeRAFT)
	require.NoError(t, err)
	assert.Equal(t, "ft:gpt-4o-mini:acme::abc", resp.Model)
	assert.Equal(t, "ft:gpt-4o-mini:acme::abc", env.llm.lastModel)
	assert.Contains(t, env.llm.lastPrompt, "chunk content")
}

func TestFineTunedOnlySkipsRetrieval(t *testing.T) {
	env := newChatEnv(t)
	// No chunks indexed at all; fine_tuned_only must still work
	job := env.completedJob(t)
	env.finishFineTune(t, job.ID, "ft:gpt-4o-mini:acme::abc")

	resp, err := env.service.Chat(context.Background(), job.ID, "What color are widgets?", models.ChatModeFineTunedOnly)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.ContextChunks)
	assert.False(t, strings.Contains(env.llm.lastPrompt, "Based on the following context"))
	assert.Equal(t, "What color are widgets?", env.llm.lastPrompt)
}

func TestRAGOnUnindexedJobReturnsNotIndexed(t *testing.T) {
	env := newChatEnv(t)
	job := env.completedJob(t) // completed but nothing indexed

	_, err := env.service.Chat(context.Background(), job.ID, "hello", models.ChatModeRAG)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrKindNotIndexed))
}

func TestChatValidation(t *testing.T) {
	env := newChatEnv(t)
	job := env.completedJob(t, "chunk")

	_, err := env.service.Chat(context.Background(), job.ID, "   ", models.ChatModeRAG)
	assert.True(t, models.IsKind(err, models.ErrKindValidation))

	_, err = env.service.Chat(context.Background(), "job_missing", "hello", models.ChatModeRAG)
	assert.True(t, models.IsKind(err, models.ErrKindNotFound))

	_ = job
}

func TestParseChatModeDefaults(t *testing.T) {
	mode, err := models.ParseChatMode("")
	require.NoError(t, err)
	assert.Equal(t, models.ChatModeRAG, mode)

	_, err = models.ParseChatMode("hybrid")
	assert.True(t, models.IsKind(err, models.ErrKindValidation))
}

func TestChatRAGFiltersBelowSimilarityFloor(t *testing.T) {
	env := newChatEnv(t)
	ctx := context.Background()

	strict := NewService(env.storage, &fakeEmbedder{}, env.index, env.llm, 5, 0.9, arbor.NewLogger())

	job, err := env.machine.CreateJob(ctx, "manuals", 1)
	require.NoError(t, err)
	require.NoError(t, env.machine.CompleteJob(ctx, job.ID, 1))

	aligned := models.NewDocumentChunk(job.ID, 0, "doc.txt", "battery replacement steps")
	aligned.Embedding = []float32{1, 0}
	offTopic := models.NewDocumentChunk(job.ID, 1, "doc.txt", "warranty fine print")
	offTopic.Embedding = []float32{0.3, 0.95}
	require.NoError(t, env.index.Index(ctx, job.ID, []*models.DocumentChunk{aligned, offTopic}))

	resp, err := strict.Chat(ctx, job.ID, "How do I replace the battery?", models.ChatModeRAG)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.ContextChunks)
	assert.Contains(t, env.llm.lastPrompt, "battery replacement steps")
	assert.NotContains(t, env.llm.lastPrompt, "warranty fine print")
}
