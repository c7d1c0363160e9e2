package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/interfaces"
	"github.com/ternarybob/echodoc/internal/models"
)

// ragPromptTemplate is the generation prompt for retrieval-backed modes
const ragPromptTemplate = "Based on the following context, answer the question:\n\nContext:\n%s\n\nQuestion: %s"

// Service routes chat requests to a generation strategy per mode:
//   - rag: retrieve context, answer with the default chat model
//   - raft: retrieve context, answer with the job's fine-tuned model
//   - fine_tuned_only: no retrieval, answer with the fine-tuned model
//
// Mode legality is checked against a snapshot of the job's state before
// any capability call is made.
type Service struct {
	storage       interfaces.StorageManager
	embedder      interfaces.EmbeddingService
	index         interfaces.VectorIndex
	llm           interfaces.LLMService
	maxChunks     int
	minSimilarity float64
	logger        arbor.ILogger
}

// NewService creates a chat service
func NewService(
	storage interfaces.StorageManager,
	embedder interfaces.EmbeddingService,
	index interfaces.VectorIndex,
	llm interfaces.LLMService,
	maxChunks int,
	minSimilarity float64,
	logger arbor.ILogger,
) interfaces.ChatService {
	if maxChunks <= 0 {
		maxChunks = 5
	}
	return &Service{
		storage:       storage,
		embedder:      embedder,
		index:         index,
		llm:           llm,
		maxChunks:     maxChunks,
		minSimilarity: minSimilarity,
		logger:        logger,
	}
}

func (s *Service) Chat(ctx context.Context, jobID, message string, mode models.ChatMode) (*models.ChatResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, models.NewValidationError("message is required")
	}

	job, err := s.storage.Jobs().GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	// All gating happens against this snapshot, before any provider call
	if job.Status != models.JobStatusCompleted {
		return nil, models.NewIllegalTransitionError(string(job.Status),
			"job %s is not ready for chat", jobID)
	}
	if mode.RequiresFineTune() && job.FineTuneStatus != models.FineTuneStatusSucceeded {
		return nil, models.NewIllegalTransitionError(string(job.FineTuneStatus),
			"mode %s requires a succeeded fine-tune for job %s", mode, jobID)
	}

	model := ""
	if mode.RequiresFineTune() {
		model = job.FineTunedModelID
	}

	prompt := message
	contextChunks := 0

	if mode.UsesRetrieval() {
		contextText, n, err := s.retrieveContext(ctx, jobID, message)
		if err != nil {
			return nil, err
		}
		prompt = fmt.Sprintf(ragPromptTemplate, contextText, message)
		contextChunks = n
	}

	answer, err := s.llm.Generate(ctx, []interfaces.Message{
		{Role: "user", Content: prompt},
	}, model)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("job_id", jobID).
		Str("mode", string(mode)).
		Int("context_chunks", contextChunks).
		Msg("Chat answered")

	return &models.ChatResponse{
		JobID:         jobID,
		Mode:          mode,
		Answer:        answer,
		Model:         model,
		ContextChunks: contextChunks,
	}, nil
}

// retrieveContext embeds the query and joins the top-k chunk contents
func (s *Service) retrieveContext(ctx context.Context, jobID, query string) (string, int, error) {
	embedding, err := s.embedder.GenerateQueryEmbedding(ctx, query)
	if err != nil {
		return "", 0, err
	}

	results, err := s.index.Search(ctx, jobID, embedding, s.maxChunks)
	if err != nil {
		return "", 0, err
	}
	if len(results) == 0 {
		return "", 0, models.NewNotIndexedError("no context available for job: %s", jobID)
	}

	parts := make([]string, 0, len(results))
	for _, result := range results {
		if result.Similarity < s.minSimilarity {
			continue
		}
		parts = append(parts, result.Chunk.Content)
	}
	if len(parts) == 0 {
		// Nothing cleared the similarity floor; fall back to the best match
		parts = append(parts, results[0].Chunk.Content)
	}
	return strings.Join(parts, "\n\n"), len(parts), nil
}
