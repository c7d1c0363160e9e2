package interfaces

import (
	"context"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// FineTuneState is the provider-reported state of a fine-tune run
type FineTuneState string

const (
	FineTuneStateQueued    FineTuneState = "queued"
	FineTuneStateRunning   FineTuneState = "running"
	FineTuneStateSucceeded FineTuneState = "succeeded"
	FineTuneStateFailed    FineTuneState = "failed"
)

// FineTuneJob is a snapshot of an external fine-tune run obtained by polling
type FineTuneJob struct {
	Handle  string        // provider job id
	State   FineTuneState // normalized provider status
	ModelID string        // set once the run succeeded
	Error   string        // set when the run failed
}

// LLMService defines the external model capability: embeddings, text
// generation against a selectable model, and fine-tuning. Implementations
// route to cloud providers; tests substitute deterministic doubles.
type LLMService interface {
	// Embed generates an embedding vector for the given text
	Embed(ctx context.Context, text string) ([]float32, error)

	// Generate produces a completion for the conversation using the given
	// model. An empty model selects the configured default chat model.
	Generate(ctx context.Context, messages []Message, model string) (string, error)

	// CreateFineTune submits a JSONL training dataset against a base model
	// and returns the provider handle for polling.
	CreateFineTune(ctx context.Context, dataset []byte, baseModel string) (string, error)

	// GetFineTune polls the state of a previously submitted fine-tune run
	GetFineTune(ctx context.Context, handle string) (*FineTuneJob, error)

	// HealthCheck verifies the service can reach its provider
	HealthCheck(ctx context.Context) error

	// Close releases provider clients
	Close() error
}

// JudgeService scores an answer against quality metrics on a 1-10 scale.
// The returned map contains only the metrics the judge reported; the
// oracle_agreement metric is present only when a reference answer was given.
type JudgeService interface {
	Judge(ctx context.Context, question, answer, contextText, reference string) (map[string]float64, error)
}
