package interfaces

import (
	"context"

	"github.com/ternarybob/echodoc/internal/models"
)

// EmbeddingService generates vector embeddings for chunks and queries
type EmbeddingService interface {
	// GenerateEmbedding creates a vector embedding for text
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// GenerateQueryEmbedding generates an embedding for a search query
	GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error)

	// EmbedChunk generates and sets the embedding on a chunk
	EmbedChunk(ctx context.Context, chunk *models.DocumentChunk) error
}
