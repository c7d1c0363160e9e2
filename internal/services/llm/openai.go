package llm

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
	"github.com/ternarybob/echodoc/internal/interfaces"
)

// generateWithOpenAI generates content using the OpenAI chat completions API
func (f *ProviderFactory) generateWithOpenAI(ctx context.Context, request *ContentRequest, model string) (*ContentResponse, error) {
	client, err := f.GetOpenAIClient()
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = f.openaiConfig.ChatModel
	}

	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(request.Messages)+1)
	if request.SystemInstruction != "" {
		openaiMessages = append(openaiMessages, openai.SystemMessage(request.SystemInstruction))
	}
	for _, msg := range request.Messages {
		switch msg.Role {
		case "system":
			openaiMessages = append(openaiMessages, openai.SystemMessage(msg.Content))
		case "assistant":
			openaiMessages = append(openaiMessages, openai.AssistantMessage(msg.Content))
		default:
			openaiMessages = append(openaiMessages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: openaiMessages,
	}
	if request.Temperature > 0 {
		params.Temperature = openai.Float(float64(request.Temperature))
	}
	if request.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(request.MaxTokens))
	}

	var completion *openai.ChatCompletion
	var apiErr error
	retryConfig := NewDefaultRetryConfig()

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		completion, apiErr = client.Chat.Completions.New(ctx, params)
		if apiErr == nil {
			break
		}

		if attempt == retryConfig.MaxRetries || !IsTransientError(apiErr) {
			break
		}

		backoff := retryConfig.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))

		f.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying OpenAI API call")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return nil, fmt.Errorf("OpenAI API call failed: %w", apiErr)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	return &ContentResponse{
		Text:     completion.Choices[0].Message.Content,
		Provider: ProviderOpenAI,
		Model:    string(completion.Model),
	}, nil
}

// EmbedText generates an embedding vector via the OpenAI embeddings API
func (f *ProviderFactory) EmbedText(ctx context.Context, text string) ([]float32, error) {
	client, err := f.GetOpenAIClient()
	if err != nil {
		return nil, err
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(f.openaiConfig.EmbeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	}

	var resp *openai.CreateEmbeddingResponse
	var apiErr error
	retryConfig := NewDefaultRetryConfig()

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		resp, apiErr = client.Embeddings.New(ctx, params)
		if apiErr == nil {
			break
		}

		if attempt == retryConfig.MaxRetries || !IsTransientError(apiErr) {
			break
		}

		backoff := retryConfig.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))

		f.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying OpenAI embedding call")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", apiErr)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding data returned")
	}

	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}

// SubmitFineTune uploads a JSONL training dataset and creates a fine-tune
// run against the base model. Returns the provider job id.
func (f *ProviderFactory) SubmitFineTune(ctx context.Context, dataset []byte, baseModel string) (string, error) {
	client, err := f.GetOpenAIClient()
	if err != nil {
		return "", err
	}

	if baseModel == "" {
		baseModel = f.openaiConfig.FineTuneModel
	}

	file, err := client.Files.New(ctx, openai.FileNewParams{
		File:    openai.File(bytes.NewReader(dataset), "training.jsonl", "application/jsonl"),
		Purpose: openai.FilePurposeFineTune,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload training file: %w", err)
	}

	job, err := client.FineTuning.Jobs.New(ctx, openai.FineTuningJobNewParams{
		Model:        openai.FineTuningJobNewParamsModel(baseModel),
		TrainingFile: file.ID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create fine-tune job: %w", err)
	}

	f.logger.Info().
		Str("provider_job_id", job.ID).
		Str("base_model", baseModel).
		Str("training_file", file.ID).
		Msg("Fine-tune job submitted")

	return job.ID, nil
}

// PollFineTune fetches the current state of a fine-tune run
func (f *ProviderFactory) PollFineTune(ctx context.Context, providerJobID string) (*interfaces.FineTuneJob, error) {
	client, err := f.GetOpenAIClient()
	if err != nil {
		return nil, err
	}

	job, err := client.FineTuning.Jobs.Get(ctx, providerJobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fine-tune job: %w", err)
	}

	result := &interfaces.FineTuneJob{
		Handle:  job.ID,
		State:   normalizeFineTuneStatus(string(job.Status)),
		ModelID: job.FineTunedModel,
	}
	if job.Error.Message != "" {
		result.Error = job.Error.Message
	}
	return result, nil
}

// normalizeFineTuneStatus collapses OpenAI's job statuses into the four
// states the rest of the system understands
func normalizeFineTuneStatus(status string) interfaces.FineTuneState {
	switch status {
	case "succeeded":
		return interfaces.FineTuneStateSucceeded
	case "failed", "cancelled":
		return interfaces.FineTuneStateFailed
	case "running":
		return interfaces.FineTuneStateRunning
	default:
		// validating_files, queued
		return interfaces.FineTuneStateQueued
	}
}
