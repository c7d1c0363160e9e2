package llm

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/common"
	"github.com/ternarybob/echodoc/internal/interfaces"
	"github.com/ternarybob/echodoc/internal/models"
	"golang.org/x/time/rate"
)

// Service implements the LLMService interface over the provider factory.
// Embedding calls are rate limited to stay inside the provider quota
// during bulk ingestion.
type Service struct {
	factory    *ProviderFactory
	embedLimit *rate.Limiter
	logger     arbor.ILogger
}

// NewService creates a new LLM service
func NewService(config *common.Config, logger arbor.ILogger) *Service {
	factory := NewProviderFactory(
		&config.OpenAI,
		&config.Claude,
		&config.Gemini,
		&config.LLM,
		logger,
	)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.OpenAI.EmbedRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.OpenAI.EmbedRate), 1)
	}

	return &Service{
		factory:    factory,
		embedLimit: limiter,
		logger:     logger,
	}
}

// Factory exposes the underlying provider factory
func (s *Service) Factory() *ProviderFactory {
	return s.factory
}

func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, models.NewValidationError("cannot embed empty text")
	}

	if err := s.embedLimit.Wait(ctx); err != nil {
		return nil, err
	}

	vector, err := s.factory.EmbedText(ctx, text)
	if err != nil {
		return nil, models.NewCapabilityError(err, "embedding failed")
	}
	return vector, nil
}

func (s *Service) Generate(ctx context.Context, messages []interfaces.Message, model string) (string, error) {
	resp, err := s.factory.GenerateContent(ctx, &ContentRequest{
		Messages: messages,
		Model:    model,
	})
	if err != nil {
		return "", models.NewCapabilityError(err, "generation failed")
	}
	return resp.Text, nil
}

func (s *Service) CreateFineTune(ctx context.Context, dataset []byte, baseModel string) (string, error) {
	if len(dataset) == 0 {
		return "", models.NewValidationError("training dataset is empty")
	}

	handle, err := s.factory.SubmitFineTune(ctx, dataset, baseModel)
	if err != nil {
		return "", models.NewCapabilityError(err, "fine-tune submission failed")
	}
	return handle, nil
}

func (s *Service) GetFineTune(ctx context.Context, handle string) (*interfaces.FineTuneJob, error) {
	if handle == "" {
		return nil, models.NewValidationError("fine-tune handle is required")
	}

	job, err := s.factory.PollFineTune(ctx, handle)
	if err != nil {
		return nil, models.NewCapabilityError(err, "fine-tune poll failed")
	}
	return job, nil
}

// HealthCheck verifies the default provider is reachable with a minimal
// generation call
func (s *Service) HealthCheck(ctx context.Context) error {
	_, err := s.Generate(ctx, []interfaces.Message{
		{Role: "user", Content: "ping"},
	}, "")
	return err
}

func (s *Service) Close() error {
	return s.factory.Close()
}
