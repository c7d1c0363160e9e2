package interfaces

import (
	"context"

	"github.com/ternarybob/echodoc/internal/models"
)

// ChatService routes a chat message through the generation strategy for
// the requested mode. Mode legality is enforced against the job's state
// before any capability call.
type ChatService interface {
	Chat(ctx context.Context, jobID, message string, mode models.ChatMode) (*models.ChatResponse, error)
}
