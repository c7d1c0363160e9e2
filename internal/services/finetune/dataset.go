package finetune

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/interfaces"
	"github.com/ternarybob/echodoc/internal/models"
)

const systemPrompt = "You are a helpful assistant that answers questions about the provided documents."

const questionPrompt = `Generate a question and answer pair for the following passage. The question must be answerable from the passage alone, and the answer must be grounded in it.

Respond with JSON only, in the form {"question": "...", "answer": "..."}.

Passage:
%s`

// maxQuestionAttempts bounds LLM retries per chunk before falling back
// to a template pair
const maxQuestionAttempts = 3

// trainingMessage is one message of a chat-format training example
type trainingMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// trainingExample is one JSONL line of the fine-tune dataset
type trainingExample struct {
	Messages []trainingMessage `json:"messages"`
}

type questionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// DatasetBuilder synthesizes a chat-format JSONL training dataset from a
// job's chunks. Each chunk yields one example; question/answer pairs are
// generated by the LLM with a deterministic template fallback so dataset
// construction never fails outright on generation errors.
type DatasetBuilder struct {
	llm         interfaces.LLMService
	raft        bool
	distractors int
	logger      arbor.ILogger
}

// NewDatasetBuilder creates a dataset builder. When raft is true, each
// example's user message carries the golden chunk plus distractor chunks
// so the tuned model learns to pick relevant context.
func NewDatasetBuilder(llm interfaces.LLMService, raft bool, distractors int, logger arbor.ILogger) *DatasetBuilder {
	if distractors < 0 {
		distractors = 0
	}
	return &DatasetBuilder{
		llm:         llm,
		raft:        raft,
		distractors: distractors,
		logger:      logger,
	}
}

// Build produces the JSONL dataset for the given chunks
func (b *DatasetBuilder) Build(ctx context.Context, chunks []*models.DocumentChunk) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, models.NewValidationError("cannot build dataset from zero chunks")
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)

	for i, chunk := range chunks {
		qa := b.generatePair(ctx, chunk)

		userContent := qa.Question
		if b.raft {
			userContent = b.raftUserContent(qa.Question, chunks, i)
		}

		example := trainingExample{
			Messages: []trainingMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userContent},
				{Role: "assistant", Content: qa.Answer},
			},
		}
		if err := encoder.Encode(example); err != nil {
			return nil, fmt.Errorf("failed to encode training example: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// generatePair asks the LLM for a question/answer pair, retrying a few
// times on malformed output, then falls back to a template pair
func (b *DatasetBuilder) generatePair(ctx context.Context, chunk *models.DocumentChunk) questionAnswer {
	prompt := fmt.Sprintf(questionPrompt, chunk.Content)

	for attempt := 0; attempt < maxQuestionAttempts; attempt++ {
		text, err := b.llm.Generate(ctx, []interfaces.Message{
			{Role: "user", Content: prompt},
		}, "")
		if err != nil {
			b.logger.Warn().Err(err).Str("chunk_id", chunk.ID).Int("attempt", attempt+1).Msg("Question generation failed")
			continue
		}

		qa, err := parseQuestionAnswer(text)
		if err != nil {
			b.logger.Warn().Err(err).Str("chunk_id", chunk.ID).Int("attempt", attempt+1).Msg("Question generation returned malformed JSON")
			continue
		}
		return qa
	}

	return questionAnswer{
		Question: fmt.Sprintf("What does this excerpt from %s say?", chunk.SourceFile),
		Answer:   chunk.Content,
	}
}

// raftUserContent builds a user message containing the question, the
// golden chunk, and distractor chunks drawn from the rest of the job
func (b *DatasetBuilder) raftUserContent(question string, chunks []*models.DocumentChunk, golden int) string {
	var sb strings.Builder
	sb.WriteString(question)
	sb.WriteString("\n\nContext:\n")
	sb.WriteString(chunks[golden].Content)

	for d := 1; d <= b.distractors && d < len(chunks); d++ {
		distractor := chunks[(golden+d)%len(chunks)]
		sb.WriteString("\n\n")
		sb.WriteString(distractor.Content)
	}
	return sb.String()
}

// parseQuestionAnswer extracts a question/answer JSON object, tolerating
// surrounding prose or code fences
func parseQuestionAnswer(text string) (questionAnswer, error) {
	var qa questionAnswer

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return qa, fmt.Errorf("no JSON object in response")
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), &qa); err != nil {
		return qa, fmt.Errorf("invalid question JSON: %w", err)
	}
	if strings.TrimSpace(qa.Question) == "" || strings.TrimSpace(qa.Answer) == "" {
		return qa, fmt.Errorf("question or answer missing")
	}
	return qa, nil
}
