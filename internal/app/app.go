package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/common"
	"github.com/ternarybob/echodoc/internal/handlers"
	"github.com/ternarybob/echodoc/internal/interfaces"
	"github.com/ternarybob/echodoc/internal/models"
	"github.com/ternarybob/echodoc/internal/services/chat"
	"github.com/ternarybob/echodoc/internal/services/embeddings"
	"github.com/ternarybob/echodoc/internal/services/evaluation"
	"github.com/ternarybob/echodoc/internal/services/finetune"
	"github.com/ternarybob/echodoc/internal/services/ingest"
	"github.com/ternarybob/echodoc/internal/services/llm"
	"github.com/ternarybob/echodoc/internal/services/state"
	"github.com/ternarybob/echodoc/internal/services/vector"
	"github.com/ternarybob/echodoc/internal/services/workers"
	badgerstore "github.com/ternarybob/echodoc/internal/storage/badger"
)

// App holds all initialized services and handlers
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	Storage interfaces.StorageManager

	// Services
	LLMService   interfaces.LLMService
	Embedder     interfaces.EmbeddingService
	Index        interfaces.VectorIndex
	Machine      *state.Machine
	Pipeline     *ingest.Pipeline
	ChatService  interfaces.ChatService
	Orchestrator *finetune.Orchestrator
	Judge        interfaces.JudgeService
	Evaluator    *evaluation.Engine

	// Worker pools
	ingestPool *workers.Pool
	tunePool   *workers.Pool

	// Handlers
	JobHandler      *handlers.JobHandler
	ChatHandler     *handlers.ChatHandler
	FineTuneHandler *handlers.FineTuneHandler
	EvaluateHandler *handlers.EvaluateHandler
	HealthHandler   *handlers.HealthHandler
}

// New creates and initializes the application
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := a.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := a.initServices(); err != nil {
		a.Storage.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.initHandlers()

	if err := a.rebuildIndexes(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("Index rebuild on startup incomplete")
	}

	logger.Info().Msg("Application initialized")
	return a, nil
}

func (a *App) initStorage() error {
	manager, err := badgerstore.NewManager(a.Logger, &a.Config.Storage)
	if err != nil {
		return err
	}
	a.Storage = manager

	a.Logger.Info().
		Str("badger_path", a.Config.Storage.Badger.Path).
		Str("blob_dir", a.Config.Storage.Blobs.Dir).
		Msg("Storage initialized")
	return nil
}

func (a *App) initServices() error {
	a.LLMService = llm.NewService(a.Config, a.Logger)
	a.Embedder = embeddings.NewService(a.LLMService, a.Logger)
	a.Index = vector.NewMemoryIndex(a.Logger)
	a.Machine = state.NewMachine(a.Storage, a.Logger)

	chunker, err := ingest.NewChunker(a.Config.Ingest.ChunkTokens)
	if err != nil {
		return fmt.Errorf("failed to create chunker: %w", err)
	}

	a.ingestPool = workers.NewPool(a.Config.Ingest.Workers, a.Logger)
	a.ingestPool.Start()

	a.Pipeline = ingest.NewPipeline(
		a.Storage,
		a.Machine,
		a.Embedder,
		a.Index,
		chunker,
		a.ingestPool,
		a.Config.Ingest.MaxRetries,
		a.Logger,
	)

	a.ChatService = chat.NewService(
		a.Storage,
		a.Embedder,
		a.Index,
		a.LLMService,
		a.Config.Chat.MaxChunks,
		a.Config.Chat.MinSimilarity,
		a.Logger,
	)

	builder := finetune.NewDatasetBuilder(
		a.LLMService,
		a.Config.FineTune.Raft,
		a.Config.FineTune.RaftDistractors,
		a.Logger,
	)

	a.tunePool = workers.NewPool(1, a.Logger)
	a.tunePool.Start()

	a.Orchestrator = finetune.NewOrchestrator(
		a.Storage,
		a.Machine,
		a.LLMService,
		builder,
		a.tunePool,
		&a.Config.FineTune,
		a.Config.OpenAI.FineTuneModel,
		a.Logger,
	)
	if err := a.Orchestrator.StartScheduler(); err != nil {
		return err
	}

	a.Judge = evaluation.NewJudge(a.LLMService, a.Logger)
	a.Evaluator = evaluation.NewEngine(a.Storage, a.ChatService, a.Judge, a.Logger)

	a.Logger.Info().
		Str("default_provider", a.Config.LLM.DefaultProvider).
		Bool("raft", a.Config.FineTune.Raft).
		Msg("Services initialized")
	return nil
}

func (a *App) initHandlers() {
	a.JobHandler = handlers.NewJobHandler(a.Pipeline, a.Storage, a.Logger)
	a.ChatHandler = handlers.NewChatHandler(a.ChatService, a.Logger)
	a.FineTuneHandler = handlers.NewFineTuneHandler(a.Orchestrator, a.Logger)

	defaultMode, err := models.ParseChatMode(a.Config.Evaluation.DefaultMode)
	if err != nil {
		defaultMode = models.ChatModeRAG
	}
	a.EvaluateHandler = handlers.NewEvaluateHandler(a.Evaluator, defaultMode, a.Logger)
	a.HealthHandler = handlers.NewHealthHandler(a.LLMService, a.Logger)
}

// rebuildIndexes restores the in-memory retrieval index for every
// completed job from persisted chunks. Embeddings are stored with the
// chunks, so no provider calls happen here.
func (a *App) rebuildIndexes(ctx context.Context) error {
	jobs, err := a.Storage.Jobs().ListJobs(ctx)
	if err != nil {
		return err
	}

	rebuilt := 0
	for _, job := range jobs {
		if job.Status != models.JobStatusCompleted {
			continue
		}
		if err := a.Pipeline.RebuildIndex(ctx, job.ID); err != nil {
			a.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to rebuild index")
			continue
		}
		rebuilt++
	}

	if rebuilt > 0 {
		a.Logger.Info().Int("jobs", rebuilt).Msg("Retrieval indexes rebuilt")
	}
	return nil
}

// Close shuts down services in reverse initialization order
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application...")

	if a.Orchestrator != nil {
		a.Orchestrator.StopScheduler()
	}
	if a.tunePool != nil {
		a.tunePool.Shutdown()
	}
	if a.ingestPool != nil {
		a.ingestPool.Shutdown()
	}
	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing LLM service")
		}
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing storage")
			return err
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}
