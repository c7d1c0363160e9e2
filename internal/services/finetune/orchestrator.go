package finetune

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/common"
	"github.com/ternarybob/echodoc/internal/interfaces"
	"github.com/ternarybob/echodoc/internal/models"
	"github.com/ternarybob/echodoc/internal/services/state"
	"github.com/ternarybob/echodoc/internal/services/workers"
)

// datasetBlobName is the blob key the built training dataset is stored
// under for each job
const datasetBlobName = "training.jsonl"

// Orchestrator owns the fine-tune lifecycle: it validates and accepts
// start requests, builds and submits training datasets in the
// background, and advances job state by polling the provider.
//
// At most one submission ever happens per job: Start collapses duplicate
// requests into the current status, and the submission itself only runs
// after the state machine has accepted the not_run -> queued transition.
type Orchestrator struct {
	storage     interfaces.StorageManager
	machine     *state.Machine
	llm         interfaces.LLMService
	builder     *DatasetBuilder
	pool        *workers.Pool
	baseModel   string
	minExamples int
	cron        *cron.Cron
	schedule    string
	logger      arbor.ILogger
}

// NewOrchestrator creates a fine-tune orchestrator
func NewOrchestrator(
	storage interfaces.StorageManager,
	machine *state.Machine,
	llm interfaces.LLMService,
	builder *DatasetBuilder,
	pool *workers.Pool,
	config *common.FineTuneConfig,
	baseModel string,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		storage:     storage,
		machine:     machine,
		llm:         llm,
		builder:     builder,
		pool:        pool,
		baseModel:   baseModel,
		minExamples: config.MinExamples,
		schedule:    config.PollSchedule,
		logger:      logger,
	}
}

// Start requests fine-tuning for a job. Requires ingestion completed and
// fine-tune status not_run; a request while a run is queued, running, or
// finished returns the job unchanged. Dataset build and submission run
// in the background.
func (o *Orchestrator) Start(ctx context.Context, jobID string) (*models.Job, error) {
	snapshot, accepted, err := o.machine.RequestFineTune(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if accepted {
		if err := o.pool.Submit(func(taskCtx context.Context) error {
			return o.submit(taskCtx, jobID)
		}); err != nil {
			_ = o.machine.MarkFineTuneFailed(ctx, jobID, "fine-tune could not be scheduled")
			return nil, fmt.Errorf("failed to schedule fine-tune: %w", err)
		}
	}

	return snapshot, nil
}

// submit builds the dataset and hands it to the provider
func (o *Orchestrator) submit(ctx context.Context, jobID string) error {
	chunks, err := o.storage.Chunks().GetChunks(ctx, jobID)
	if err != nil {
		return o.machine.MarkFineTuneFailed(ctx, jobID, fmt.Sprintf("failed to load chunks: %v", err))
	}
	if len(chunks) == 0 {
		return o.machine.MarkFineTuneFailed(ctx, jobID, "no chunks available for training")
	}
	if o.minExamples > 0 && len(chunks) < o.minExamples {
		return o.machine.MarkFineTuneFailed(ctx, jobID,
			fmt.Sprintf("only %d chunks available, %d training examples required", len(chunks), o.minExamples))
	}

	dataset, err := o.builder.Build(ctx, chunks)
	if err != nil {
		return o.machine.MarkFineTuneFailed(ctx, jobID, fmt.Sprintf("dataset build failed: %v", err))
	}

	if _, err := o.storage.Blobs().Put(ctx, jobID, datasetBlobName, dataset); err != nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to store training dataset blob")
	}

	handle, err := o.llm.CreateFineTune(ctx, dataset, o.baseModel)
	if err != nil {
		return o.machine.MarkFineTuneFailed(ctx, jobID, fmt.Sprintf("submission failed: %v", err))
	}

	record := models.NewFineTuneRecord(jobID, handle, o.baseModel, o.builder.raft)
	if err := o.storage.FineTunes().SaveRecord(ctx, record); err != nil {
		return o.machine.MarkFineTuneFailed(ctx, jobID, fmt.Sprintf("failed to persist record: %v", err))
	}

	if err := o.machine.MarkFineTuneRunning(ctx, jobID); err != nil {
		return err
	}

	o.logger.Info().Str("job_id", jobID).Str("provider_job_id", handle).Msg("Fine-tune submitted")
	return nil
}

// Poll refreshes one job's fine-tune state from the provider. Safe to
// call repeatedly; transitions already applied are no-ops.
func (o *Orchestrator) Poll(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := o.storage.Jobs().GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if !job.FineTuneActive() {
		return job, nil
	}

	record, err := o.storage.FineTunes().GetRecordByJob(ctx, jobID)
	if err != nil {
		if models.IsKind(err, models.ErrKindNotFound) {
			// Accepted but not yet submitted; nothing to poll
			return job, nil
		}
		return nil, err
	}

	remote, err := o.llm.GetFineTune(ctx, record.ProviderJobID)
	if err != nil {
		return nil, err
	}

	switch remote.State {
	case interfaces.FineTuneStateRunning:
		if err := o.machine.MarkFineTuneRunning(ctx, jobID); err != nil {
			return nil, err
		}
	case interfaces.FineTuneStateSucceeded:
		record.ModelID = remote.ModelID
		if err := o.storage.FineTunes().SaveRecord(ctx, record); err != nil {
			return nil, err
		}
		if err := o.machine.MarkFineTuneSucceeded(ctx, jobID, remote.ModelID); err != nil {
			return nil, err
		}
	case interfaces.FineTuneStateFailed:
		reason := remote.Error
		if reason == "" {
			reason = "provider reported failure"
		}
		record.Error = reason
		if err := o.storage.FineTunes().SaveRecord(ctx, record); err != nil {
			return nil, err
		}
		if err := o.machine.MarkFineTuneFailed(ctx, jobID, reason); err != nil {
			return nil, err
		}
	}

	return o.storage.Jobs().GetJob(ctx, jobID)
}

// PollActive refreshes every job with an active fine-tune run
func (o *Orchestrator) PollActive(ctx context.Context) {
	jobs, err := o.storage.Jobs().ListJobs(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("Fine-tune poll: failed to list jobs")
		return
	}

	for _, job := range jobs {
		if !job.FineTuneActive() {
			continue
		}
		if _, err := o.Poll(ctx, job.ID); err != nil {
			o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Fine-tune poll failed")
		}
	}
}

// StartScheduler begins background polling on the configured cron
// schedule
func (o *Orchestrator) StartScheduler() error {
	if o.schedule == "" {
		return nil
	}

	o.cron = cron.New()
	_, err := o.cron.AddFunc(o.schedule, func() {
		o.PollActive(context.Background())
	})
	if err != nil {
		return fmt.Errorf("invalid fine-tune poll schedule %q: %w", o.schedule, err)
	}

	o.cron.Start()
	o.logger.Info().Str("schedule", o.schedule).Msg("Fine-tune poll scheduler started")
	return nil
}

// StopScheduler stops background polling
func (o *Orchestrator) StopScheduler() {
	if o.cron != nil {
		o.cron.Stop()
	}
}
