package evaluation

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
	"github.com/ternarybob/echodoc/internal/storage/badger"
)

// fakeChat answers every question with a canned string and can fail on
// questions containing a marker
type fakeChat struct {
	failOn string
}

func (f *fakeChat) Chat(ctx context.Context, jobID, message string, mode models.ChatMode) (*models.ChatResponse, error) {
	if f.failOn != "" && strings.Contains(message, f.failOn) {
		return nil, models.NewCapabilityError(errors.New("provider down"), "generation failed")
	}
	return &models.ChatResponse{JobID: jobID, Mode: mode, Answer: "answer to: " + message}, nil
}

// fakeJudge returns deterministic scores and can fail on a marker
type fakeJudge struct {
	failOn string
	score  float64
}

func (f *fakeJudge) Judge(ctx context.Context, question, answer, contextText, reference string) (map[string]float64, error) {
	if f.failOn != "" && strings.Contains(question, f.failOn) {
		return nil, models.NewCapabilityError(errors.New("judge down"), "judging failed")
	}

	score := f.score
	if score == 0 {
		score = 8
	}
	scores := map[string]float64{
		models.MetricRelevancy:    score,
		models.MetricFaithfulness: score,
		models.MetricCompleteness: score,
		models.MetricClarity:      score,
	}
	if reference != "" {
		scores[models.MetricCorrectness] = score
		scores[models.MetricOracleAgreement] = score
	}
	return scores, nil
}

type evalEnv struct {
	engine  *Engine
	machine *state.Machine
	storage interfaces.StorageManager
}

func newEvalEnv(t *testing.T, chat interfaces.ChatService, judge interfaces.JudgeService) *evalEnv {
	t.Helper()

	tmpDir := t.TempDir()
	logger := arbor.NewLogger()

	storage, err := badger.NewManager(logger, &common.StorageConfig{
		Badger: common.BadgerConfig{Path: filepath.Join(tmpDir, "db")},
		Blobs:  common.BlobConfig{Dir: filepath.Join(tmpDir, "blobs")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	machine := state.NewMachine(storage, logger)
	engine := NewEngine(storage, chat, judge, logger)

	return &evalEnv{engine: engine, machine: machine, storage: storage}
}

func (e *evalEnv) completedJob(t *testing.T) *models.Job {
	t.Helper()
	ctx := context.Background()

	job, err := e.machine.CreateJob(ctx, "manuals", 1)
	require.NoError(t, err)

	chunk := models.NewDocumentChunk(job.ID, 0, "a.txt", "The widget needs a 9V battery.")
	chunk.Embedding = []float32{1, 0}
	require.NoError(t, e.storage.Chunks().SaveChunks(ctx, []*models.DocumentChunk{chunk}))
	require.NoError(t, e.machine.CompleteJob(ctx, job.ID, 1))
	return job
}

func TestEvaluateAllQuestions(t *testing.T) {
	env := newEvalEnv(t, &fakeChat{}, &fakeJudge{})
	job := env.completedJob(t)

	result, err := env.engine.Evaluate(context.Background(), job.ID, models.ChatModeRAG)
	require.NoError(t, err)

	questions := DefaultQuestions()
	require.Len(t, result.PerQuestion, len(questions))
	assert.Equal(t, models.ChatModeRAG, result.Mode)

	// Base metrics averaged over all questions, reference metrics only
	// over the two questions carrying a reference
	assert.InDelta(t, 8, result.Aggregate[models.MetricRelevancy], 1e-9)
	assert.InDelta(t, 8, result.Aggregate[models.MetricCorrectness], 1e-9)
	assert.InDelta(t, 8, result.Aggregate[models.MetricOracleAgreement], 1e-9)

	withReference := 0
	for _, qr := range result.PerQuestion {
		if qr.Reference != "" {
			withReference++
			assert.Contains(t, qr.Scores, models.MetricOracleAgreement)
		} else if qr.Scores != nil {
			assert.NotContains(t, qr.Scores, models.MetricOracleAgreement)
		}
	}
	assert.Equal(t, 2, withReference)
}

func TestEvaluateOmitsUnreportedMetrics(t *testing.T) {
	// Judge fails on both reference questions, so correctness and
	// oracle_agreement have zero reporters
	env := newEvalEnv(t, &fakeChat{}, &fakeJudge{failOn: "strawberry"})
	job := env.completedJob(t)

	engine := env.engine
	engine.questions = []models.EvaluationQuestion{
		{Question: "What is the main topic discussed in the document?"},
		{Question: "How many Rs are in strawberry?", Reference: "3"},
	}

	result, err := engine.Evaluate(context.Background(), job.ID, models.ChatModeRAG)
	require.NoError(t, err)

	assert.Contains(t, result.Aggregate, models.MetricRelevancy)
	assert.NotContains(t, result.Aggregate, models.MetricCorrectness)
	assert.NotContains(t, result.Aggregate, models.MetricOracleAgreement)

	// The failed question is recorded with its error
	require.Len(t, result.PerQuestion, 2)
	assert.NotEmpty(t, result.PerQuestion[1].Error)
	assert.Nil(t, result.PerQuestion[1].Scores)
}

func TestEvaluatePerQuestionChatFailure(t *testing.T) {
	env := newEvalEnv(t, &fakeChat{failOn: "Atlantis"}, &fakeJudge{})
	job := env.completedJob(t)

	result, err := env.engine.Evaluate(context.Background(), job.ID, models.ChatModeRAG)
	require.NoError(t, err)

	failed := 0
	for _, qr := range result.PerQuestion {
		if qr.Error != "" {
			failed++
			assert.Empty(t, qr.Answer)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestEvaluateRejectsProcessingJob(t *testing.T) {
	env := newEvalEnv(t, &fakeChat{}, &fakeJudge{})
	ctx := context.Background()

	job, err := env.machine.CreateJob(ctx, "manuals", 1)
	require.NoError(t, err)

	_, err = env.engine.Evaluate(ctx, job.ID, models.ChatModeRAG)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrKindIllegalTransition))
}

func TestEvaluateFineTunedModeGating(t *testing.T) {
	env := newEvalEnv(t, &fakeChat{}, &fakeJudge{})
	job := env.completedJob(t)

	_, err := env.engine.Evaluate(context.Background(), job.ID, models.ChatModeFineTunedOnly)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrKindIllegalTransition))
}

func TestParseScoresValidation(t *testing.T) {
	scores, err := parseScores(`{"relevancy": 8, "faithfulness": 7, "completeness": 6, "clarity": 9}`, false)
	require.NoError(t, err)
	assert.Len(t, scores, 4)

	// Reference metrics required when a reference exists
	_, err = parseScores(`{"relevancy": 8, "faithfulness": 7, "completeness": 6, "clarity": 9}`, true)
	assert.Error(t, err)

	// Out-of-range score rejected
	_, err = parseScores(`{"relevancy": 11, "faithfulness": 7, "completeness": 6, "clarity": 9}`, false)
	assert.Error(t, err)

	_, err = parseScores("not json", false)
	assert.Error(t, err)
}

func TestAggregateScoresMeans(t *testing.T) {
	aggregate := aggregateScores([]models.QuestionResult{
		{Scores: map[string]float64{models.MetricRelevancy: 6, models.MetricOracleAgreement: 10}},
		{Scores: map[string]float64{models.MetricRelevancy: 8}},
		{Error: "chat failed"},
	})

	assert.InDelta(t, 7, aggregate[models.MetricRelevancy], 1e-9)
	// oracle_agreement averaged only over its single reporter
	assert.InDelta(t, 10, aggregate[models.MetricOracleAgreement], 1e-9)
	assert.NotContains(t, aggregate, models.MetricClarity)
}
