package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the ingestion state of a job
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// FineTuneStatus represents the fine-tuning state of a job, tracked
// independently of the ingestion status.
type FineTuneStatus string

const (
	FineTuneStatusNotRun    FineTuneStatus = "not_run"
	FineTuneStatusQueued    FineTuneStatus = "queued"
	FineTuneStatusRunning   FineTuneStatus = "running"
	FineTuneStatusSucceeded FineTuneStatus = "succeeded"
	FineTuneStatusFailed    FineTuneStatus = "failed"
)

// Job represents a document processing job. A job groups the documents
// uploaded together under one name, the retrieval index built from them,
// and any fine-tune run derived from them.
//
// Lifecycle:
//   - Status: processing -> completed | failed (terminal)
//   - FineTuneStatus: not_run -> queued -> running -> succeeded | failed
//
// FineTunedModelID is non-empty if and only if FineTuneStatus is succeeded.
// All mutations go through the state machine service; nothing else writes jobs.
type Job struct {
	ID               string         `json:"id"`
	Name             string         `json:"job_name"`
	Status           JobStatus      `json:"status"`
	FineTuneStatus   FineTuneStatus `json:"fine_tune_status"`
	FineTunedModelID string         `json:"fine_tuned_model_id,omitempty"`
	FileCount        int            `json:"file_count"`
	DocumentCount    int            `json:"document_count"`
	Error            string         `json:"error,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
}

// NewJob creates a job in its initial state
func NewJob(name string, fileCount int) *Job {
	now := time.Now()
	return &Job{
		ID:             "job_" + uuid.New().String(),
		Name:           name,
		Status:         JobStatusProcessing,
		FineTuneStatus: FineTuneStatusNotRun,
		FileCount:      fileCount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Validate checks structural and state invariants
func (j *Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if j.Name == "" {
		return fmt.Errorf("job name is required")
	}
	switch j.Status {
	case JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
	default:
		return fmt.Errorf("invalid job status: %s", j.Status)
	}
	switch j.FineTuneStatus {
	case FineTuneStatusNotRun, FineTuneStatusQueued, FineTuneStatusRunning,
		FineTuneStatusSucceeded, FineTuneStatusFailed:
	default:
		return fmt.Errorf("invalid fine-tune status: %s", j.FineTuneStatus)
	}
	hasModel := j.FineTunedModelID != ""
	succeeded := j.FineTuneStatus == FineTuneStatusSucceeded
	if hasModel != succeeded {
		return fmt.Errorf("fine-tuned model id must be set exactly when fine-tune status is succeeded (status=%s, model=%q)",
			j.FineTuneStatus, j.FineTunedModelID)
	}
	return nil
}

// IsTerminal returns true if ingestion has reached a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// FineTuneActive returns true while a fine-tune run is queued or running
func (j *Job) FineTuneActive() bool {
	return j.FineTuneStatus == FineTuneStatusQueued || j.FineTuneStatus == FineTuneStatusRunning
}

// Clone returns a copy of the job so callers can hand out snapshots
// without exposing the stored record to mutation.
func (j *Job) Clone() *Job {
	c := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
