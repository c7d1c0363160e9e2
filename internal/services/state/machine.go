package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/interfaces"
	"github.com/ternarybob/echodoc/internal/models"
)

// Machine is the single writer for job records. Every status or
// fine-tune transition goes through it under a per-job lock, and every
// transition appends an entry to the job's activity trail.
type Machine struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMachine creates a new job state machine
func NewMachine(storage interfaces.StorageManager, logger arbor.ILogger) *Machine {
	return &Machine{
		storage: storage,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// jobLock returns the mutex guarding one job's transitions
func (m *Machine) jobLock(jobID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[jobID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[jobID] = lock
	}
	return lock
}

// WithJobLock runs fn while holding the job's transition lock. Used by
// orchestrators that need to read-check-act atomically against the job.
func (m *Machine) WithJobLock(jobID string, fn func() error) error {
	lock := m.jobLock(jobID)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

// CreateJob persists a new job in its initial processing state
func (m *Machine) CreateJob(ctx context.Context, name string, fileCount int) (*models.Job, error) {
	if name == "" {
		return nil, models.NewValidationError("job name is required")
	}
	if fileCount <= 0 {
		return nil, models.NewValidationError("at least one file is required")
	}

	job := models.NewJob(name, fileCount)
	if err := m.storage.Jobs().SaveJob(ctx, job); err != nil {
		return nil, err
	}

	m.appendLog(ctx, job.ID, models.EventJobCreated,
		fmt.Sprintf("job %q created with %d files", name, fileCount))

	m.logger.Info().Str("job_id", job.ID).Str("name", name).Int("files", fileCount).Msg("Job created")
	return job.Clone(), nil
}

// CompleteJob transitions a processing job to completed and records the
// number of documents that made it into the index
func (m *Machine) CompleteJob(ctx context.Context, jobID string, documentCount int) error {
	return m.WithJobLock(jobID, func() error {
		job, err := m.storage.Jobs().GetJob(ctx, jobID)
		if err != nil {
			return err
		}

		if job.Status == models.JobStatusCompleted {
			return nil // already there
		}
		if job.Status != models.JobStatusProcessing {
			return models.NewIllegalTransitionError(string(job.Status),
				"cannot complete job %s", jobID)
		}

		now := time.Now().UTC()
		job.Status = models.JobStatusCompleted
		job.DocumentCount = documentCount
		job.CompletedAt = &now

		if err := m.storage.Jobs().SaveJob(ctx, job); err != nil {
			return err
		}

		m.appendLog(ctx, jobID, models.EventJobCompleted,
			fmt.Sprintf("ingestion completed with %d documents", documentCount))
		m.logger.Info().Str("job_id", jobID).Int("documents", documentCount).Msg("Job completed")
		return nil
	})
}

// FailJob transitions a processing job to failed with a reason
func (m *Machine) FailJob(ctx context.Context, jobID, reason string) error {
	return m.WithJobLock(jobID, func() error {
		job, err := m.storage.Jobs().GetJob(ctx, jobID)
		if err != nil {
			return err
		}

		if job.Status == models.JobStatusFailed {
			return nil
		}
		if job.Status != models.JobStatusProcessing {
			return models.NewIllegalTransitionError(string(job.Status),
				"cannot fail job %s", jobID)
		}

		job.Status = models.JobStatusFailed
		job.Error = reason

		if err := m.storage.Jobs().SaveJob(ctx, job); err != nil {
			return err
		}

		m.appendLog(ctx, jobID, models.EventJobFailed, reason)
		m.logger.Warn().Str("job_id", jobID).Str("reason", reason).Msg("Job failed")
		return nil
	})
}

// RequestFineTune accepts or collapses a fine-tune start request under
// the job's lock. It returns the job snapshot and whether this request
// won the not_run -> queued transition; a duplicate request returns the
// current snapshot with accepted=false and no error. Requires ingestion
// completed.
func (m *Machine) RequestFineTune(ctx context.Context, jobID string) (job *models.Job, accepted bool, err error) {
	err = m.WithJobLock(jobID, func() error {
		stored, getErr := m.storage.Jobs().GetJob(ctx, jobID)
		if getErr != nil {
			return getErr
		}

		if stored.FineTuneStatus != models.FineTuneStatusNotRun {
			job = stored.Clone()
			return nil
		}

		if stored.Status != models.JobStatusCompleted {
			return models.NewIllegalTransitionError(string(stored.Status),
				"job %s must complete ingestion before fine-tuning", jobID)
		}

		stored.FineTuneStatus = models.FineTuneStatusQueued
		if saveErr := m.storage.Jobs().SaveJob(ctx, stored); saveErr != nil {
			return saveErr
		}

		m.appendLog(ctx, jobID, models.EventFineTuneRequested, "fine-tune requested")
		m.appendLog(ctx, jobID, models.EventFineTuneQueued, "fine-tune queued")

		job = stored.Clone()
		accepted = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return job, accepted, nil
}

// MarkFineTuneQueued moves the fine-tune lifecycle to queued. Legal from
// not_run; calling again while already queued is a no-op so duplicate
// start requests collapse.
func (m *Machine) MarkFineTuneQueued(ctx context.Context, jobID string) error {
	return m.transitionFineTune(ctx, jobID, models.FineTuneStatusQueued, "",
		models.EventFineTuneQueued, "fine-tune queued",
		models.FineTuneStatusNotRun)
}

// MarkFineTuneRunning moves the fine-tune lifecycle to running
func (m *Machine) MarkFineTuneRunning(ctx context.Context, jobID string) error {
	return m.transitionFineTune(ctx, jobID, models.FineTuneStatusRunning, "",
		models.EventFineTuneRunning, "fine-tune running",
		models.FineTuneStatusQueued)
}

// MarkFineTuneSucceeded records the tuned model id. This is the only
// place FineTunedModelID is ever set.
func (m *Machine) MarkFineTuneSucceeded(ctx context.Context, jobID, modelID string) error {
	if modelID == "" {
		return models.NewValidationError("fine-tuned model id is required on success")
	}
	return m.transitionFineTune(ctx, jobID, models.FineTuneStatusSucceeded, modelID,
		models.EventFineTuneSucceeded, fmt.Sprintf("fine-tune succeeded, model %s", modelID),
		models.FineTuneStatusQueued, models.FineTuneStatusRunning)
}

// MarkFineTuneFailed records a failed fine-tune run
func (m *Machine) MarkFineTuneFailed(ctx context.Context, jobID, reason string) error {
	return m.transitionFineTune(ctx, jobID, models.FineTuneStatusFailed, "",
		models.EventFineTuneFailed, reason,
		models.FineTuneStatusQueued, models.FineTuneStatusRunning)
}

// transitionFineTune applies one fine-tune lifecycle transition.
// Re-applying the target state is a no-op; anything not in from states
// is an illegal transition carrying the job's current state.
func (m *Machine) transitionFineTune(ctx context.Context, jobID string, target models.FineTuneStatus,
	modelID, eventType, message string, from ...models.FineTuneStatus) error {

	return m.WithJobLock(jobID, func() error {
		job, err := m.storage.Jobs().GetJob(ctx, jobID)
		if err != nil {
			return err
		}

		if job.FineTuneStatus == target {
			return nil
		}

		legal := false
		for _, f := range from {
			if job.FineTuneStatus == f {
				legal = true
				break
			}
		}
		if !legal {
			return models.NewIllegalTransitionError(string(job.FineTuneStatus),
				"cannot move fine-tune to %s for job %s", target, jobID)
		}

		job.FineTuneStatus = target
		job.FineTunedModelID = modelID

		if err := m.storage.Jobs().SaveJob(ctx, job); err != nil {
			return err
		}

		m.appendLog(ctx, jobID, eventType, message)
		m.logger.Info().
			Str("job_id", jobID).
			Str("fine_tune_status", string(target)).
			Msg("Fine-tune status changed")
		return nil
	})
}

// AppendEvent records a pipeline event on the job's activity trail
func (m *Machine) AppendEvent(ctx context.Context, jobID, eventType, message string) {
	m.appendLog(ctx, jobID, eventType, message)
}

func (m *Machine) appendLog(ctx context.Context, jobID, eventType, message string) {
	entry := models.JobLogEntry{
		JobID:     jobID,
		EventType: eventType,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if err := m.storage.JobLogs().AppendLog(ctx, entry); err != nil {
		m.logger.Warn().Err(err).Str("job_id", jobID).Str("event", eventType).Msg("Failed to append job log")
	}
}
