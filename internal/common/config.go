package common

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Storage    StorageConfig    `toml:"storage"`
	Ingest     IngestConfig     `toml:"ingest"`
	Chat       ChatConfig       `toml:"chat"`
	LLM        LLMConfig        `toml:"llm"`
	OpenAI     OpenAIConfig     `toml:"openai"`
	Claude     ClaudeConfig     `toml:"claude"`
	Gemini     GeminiConfig     `toml:"gemini"`
	FineTune   FineTuneConfig   `toml:"finetune"`
	Evaluation EvaluationConfig `toml:"evaluation"`
	Logging    LoggingConfig    `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
	Blobs  BlobConfig   `toml:"blobs"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// BlobConfig configures the filesystem blob store for uploaded documents
// and generated training datasets
type BlobConfig struct {
	Dir string `toml:"dir"`
}

// IngestConfig controls document chunking and background ingestion
type IngestConfig struct {
	ChunkTokens int `toml:"chunk_tokens" validate:"gt=0"` // Maximum tokens per chunk
	Workers     int `toml:"workers" validate:"gt=0"`      // Background worker pool size
	MaxRetries  int `toml:"max_retries"`                  // Bounded retries for transient embedding errors
}

// ChatConfig controls retrieval behavior for chat requests
type ChatConfig struct {
	MaxChunks     int     `toml:"max_chunks" validate:"gt=0"` // Top-k chunks injected as context
	MinSimilarity float64 `toml:"min_similarity"`             // Minimum cosine similarity to include a chunk
}

// LLMConfig selects the default provider for generation
type LLMConfig struct {
	DefaultProvider string `toml:"default_provider" validate:"oneof=openai claude gemini"`
}

// OpenAIConfig configures the OpenAI provider. OpenAI is the only provider
// carrying embeddings and fine-tuning.
type OpenAIConfig struct {
	APIKey         string  `toml:"api_key"`
	ChatModel      string  `toml:"chat_model"`
	EmbeddingModel string  `toml:"embedding_model"`
	FineTuneModel  string  `toml:"finetune_model"`
	EmbedRate      float64 `toml:"embed_rate"` // Embedding requests per second (0 = unlimited)
}

// ClaudeConfig configures the Anthropic provider (generation only)
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// GeminiConfig configures the Google Gemini provider (generation only)
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// FineTuneConfig controls the fine-tune orchestrator
type FineTuneConfig struct {
	PollSchedule    string `toml:"poll_schedule"`    // Cron schedule for background status polling
	Raft            bool   `toml:"raft"`             // Build RAFT-style datasets with distractor contexts
	RaftDistractors int    `toml:"raft_distractors"` // Distractor chunks per training example
	MinExamples     int    `toml:"min_examples"`     // Minimum training examples required to submit
}

// EvaluationConfig controls the evaluation engine
type EvaluationConfig struct {
	DefaultMode string `toml:"default_mode" validate:"oneof=rag raft fine_tuned_only"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// DefaultConfig returns the configuration defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/echodoc.db",
			},
			Blobs: BlobConfig{
				Dir: "./data/blobs",
			},
		},
		Ingest: IngestConfig{
			ChunkTokens: 400,
			Workers:     4,
			MaxRetries:  2,
		},
		Chat: ChatConfig{
			MaxChunks:     5,
			MinSimilarity: 0.0,
		},
		LLM: LLMConfig{
			DefaultProvider: "openai",
		},
		OpenAI: OpenAIConfig{
			ChatModel:      "gpt-4o",
			EmbeddingModel: "text-embedding-3-small",
			FineTuneModel:  "gpt-4o-mini-2024-07-18",
			EmbedRate:      5,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0.7,
		},
		FineTune: FineTuneConfig{
			PollSchedule:    "@every 30s",
			RaftDistractors: 3,
			MinExamples:     10,
		},
		Evaluation: EvaluationConfig{
			DefaultMode: "rag",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFiles loads configuration: defaults -> file(s) -> env.
// Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variables over file values.
// API keys are the usual case: they live in the environment (or .env),
// not in the checked-in TOML.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		config.OpenAI.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}
	if v := os.Getenv("ECHODOC_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("ECHODOC_BADGER_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("ECHODOC_BLOB_DIR"); v != "" {
		config.Storage.Blobs.Dir = v
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
