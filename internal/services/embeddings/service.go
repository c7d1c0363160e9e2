package embeddings

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/interfaces"
	"github.com/ternarybob/echodoc/internal/models"
)

// Service implements the EmbeddingService interface on top of the LLM
// capability layer
type Service struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewService creates a new embedding service
func NewService(llm interfaces.LLMService, logger arbor.ILogger) interfaces.EmbeddingService {
	return &Service{
		llm:    llm,
		logger: logger,
	}
}

func (s *Service) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("cannot embed empty text")
	}
	return s.llm.Embed(ctx, text)
}

func (s *Service) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return s.GenerateEmbedding(ctx, query)
}

func (s *Service) EmbedChunk(ctx context.Context, chunk *models.DocumentChunk) error {
	embedding, err := s.GenerateEmbedding(ctx, chunk.Content)
	if err != nil {
		return err
	}
	chunk.Embedding = embedding
	return nil
}
