package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/common"
	"github.com/ternarybob/echodoc/internal/interfaces"
)

func newTestFactory() *ProviderFactory {
	config := common.DefaultConfig()
	return NewProviderFactory(
		&config.OpenAI,
		&config.Claude,
		&config.Gemini,
		&config.LLM,
		arbor.NewLogger(),
	)
}

func TestDetectProvider(t *testing.T) {
	f := newTestFactory()

	tests := []struct {
		model    string
		expected ProviderType
	}{
		{"", ProviderOpenAI}, // default provider
		{"gpt-4o", ProviderOpenAI},
		{"ft:gpt-4o-mini-2024-07-18:acme::abc123", ProviderOpenAI},
		{"openai/gpt-4o", ProviderOpenAI},
		{"claude-sonnet-4-20250514", ProviderClaude},
		{"claude/claude-sonnet-4-20250514", ProviderClaude},
		{"anthropic/claude-haiku-4", ProviderClaude},
		{"gemini-2.5-flash", ProviderGemini},
		{"google/gemini-2.5-pro", ProviderGemini},
		{"some-unknown-model", ProviderOpenAI}, // falls back to default
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, f.DetectProvider(tt.model), "model %q", tt.model)
	}
}

func TestNormalizeModel(t *testing.T) {
	f := newTestFactory()

	assert.Equal(t, "gpt-4o", f.NormalizeModel("openai/gpt-4o"))
	assert.Equal(t, "claude-sonnet-4-20250514", f.NormalizeModel("claude/claude-sonnet-4-20250514"))
	assert.Equal(t, "gemini-2.5-flash", f.NormalizeModel("gemini-2.5-flash"))
}

func TestConvertMessagesRequiresUser(t *testing.T) {
	_, _, err := convertMessagesToClaude([]interfaces.Message{
		{Role: "system", Content: "be helpful"},
	})
	assert.Error(t, err)

	_, _, err = convertMessagesToGemini(nil)
	assert.Error(t, err)
}

func TestConvertMessagesExtractsSystem(t *testing.T) {
	msgs := []interfaces.Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "hello"},
	}

	claudeMsgs, system, err := convertMessagesToClaude(msgs)
	assert.NoError(t, err)
	assert.Equal(t, "be helpful", system)
	assert.Len(t, claudeMsgs, 1)

	geminiMsgs, system, err := convertMessagesToGemini(msgs)
	assert.NoError(t, err)
	assert.Equal(t, "be helpful", system)
	assert.Len(t, geminiMsgs, 1)
}

func TestNormalizeFineTuneStatus(t *testing.T) {
	assert.Equal(t, interfaces.FineTuneStateQueued, normalizeFineTuneStatus("validating_files"))
	assert.Equal(t, interfaces.FineTuneStateQueued, normalizeFineTuneStatus("queued"))
	assert.Equal(t, interfaces.FineTuneStateRunning, normalizeFineTuneStatus("running"))
	assert.Equal(t, interfaces.FineTuneStateSucceeded, normalizeFineTuneStatus("succeeded"))
	assert.Equal(t, interfaces.FineTuneStateFailed, normalizeFineTuneStatus("failed"))
	assert.Equal(t, interfaces.FineTuneStateFailed, normalizeFineTuneStatus("cancelled"))
}

func TestCalculateBackoffCapped(t *testing.T) {
	config := NewDefaultRetryConfig()

	assert.Equal(t, config.InitialBackoff, config.CalculateBackoff(0, 0))
	assert.LessOrEqual(t, config.CalculateBackoff(10, 0), config.MaxBackoff)
	assert.Equal(t, 45*time.Second, config.CalculateBackoff(0, 45*time.Second))
}

func TestExtractRetryDelay(t *testing.T) {
	err := assert.AnError
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(err))
}
