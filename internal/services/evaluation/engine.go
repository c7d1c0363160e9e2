package evaluation

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/interfaces"
	"github.com/ternarybob/echodoc/internal/models"
)

// Engine runs the evaluation question set against a job's chat modes
// synchronously. Answers come from the chat service so mode gating and
// retrieval behave exactly as they do for real chat traffic; the judge
// scores each answer against the job's full chunk context.
//
// Results are returned to the caller only, never persisted. A metric's
// aggregate is the mean over the questions that reported it; a metric no
// question reported is absent from the aggregate map rather than zero.
type Engine struct {
	storage   interfaces.StorageManager
	chat      interfaces.ChatService
	judge     interfaces.JudgeService
	questions []models.EvaluationQuestion
	logger    arbor.ILogger
}

// NewEngine creates an evaluation engine over the default question set
func NewEngine(
	storage interfaces.StorageManager,
	chat interfaces.ChatService,
	judge interfaces.JudgeService,
	logger arbor.ILogger,
) *Engine {
	return &Engine{
		storage:   storage,
		chat:      chat,
		judge:     judge,
		questions: DefaultQuestions(),
		logger:    logger,
	}
}

// Evaluate runs every question through the given chat mode and judges
// each answer. Per-question failures are recorded and excluded from the
// aggregate; the run itself only fails when the job cannot be chatted
// with at all.
func (e *Engine) Evaluate(ctx context.Context, jobID string, mode models.ChatMode) (*models.EvaluationResult, error) {
	job, err := e.storage.Jobs().GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusCompleted {
		return nil, models.NewIllegalTransitionError(string(job.Status),
			"job %s is not ready for evaluation", jobID)
	}
	if mode.RequiresFineTune() && job.FineTuneStatus != models.FineTuneStatusSucceeded {
		return nil, models.NewIllegalTransitionError(string(job.FineTuneStatus),
			"mode %s requires a succeeded fine-tune for job %s", mode, jobID)
	}

	contextText, err := e.jobContext(ctx, jobID)
	if err != nil {
		return nil, err
	}

	result := &models.EvaluationResult{
		JobID:       jobID,
		Mode:        mode,
		PerQuestion: make([]models.QuestionResult, 0, len(e.questions)),
	}

	for _, question := range e.questions {
		qr := models.QuestionResult{
			Question:  question.Question,
			Reference: question.Reference,
		}

		resp, err := e.chat.Chat(ctx, jobID, question.Question, mode)
		if err != nil {
			qr.Error = err.Error()
			e.logger.Warn().Err(err).Str("job_id", jobID).Str("question", question.Question).Msg("Evaluation answer failed")
			result.PerQuestion = append(result.PerQuestion, qr)
			continue
		}
		qr.Answer = resp.Answer

		scores, err := e.judge.Judge(ctx, question.Question, resp.Answer, contextText, question.Reference)
		if err != nil {
			qr.Error = err.Error()
			e.logger.Warn().Err(err).Str("job_id", jobID).Str("question", question.Question).Msg("Evaluation judging failed")
			result.PerQuestion = append(result.PerQuestion, qr)
			continue
		}
		qr.Scores = scores

		result.PerQuestion = append(result.PerQuestion, qr)
	}

	result.Aggregate = aggregateScores(result.PerQuestion)
	return result, nil
}

// jobContext joins the job's chunk contents into the judge's context
func (e *Engine) jobContext(ctx context.Context, jobID string) (string, error) {
	chunks, err := e.storage.Chunks().GetChunks(ctx, jobID)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return "", models.NewNotIndexedError("no context available for job: %s", jobID)
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = chunk.Content
	}
	return strings.Join(parts, "\n"), nil
}

// aggregateScores means each metric over the questions that reported it.
// Metrics with no reporting question are left out entirely.
func aggregateScores(perQuestion []models.QuestionResult) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, qr := range perQuestion {
		for metric, score := range qr.Scores {
			sums[metric] += score
			counts[metric]++
		}
	}

	aggregate := make(map[string]float64, len(sums))
	for metric, sum := range sums {
		aggregate[metric] = sum / float64(counts[metric])
	}
	return aggregate
}
