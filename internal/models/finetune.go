package models

import (
	"time"

	"github.com/google/uuid"
)

// FineTuneRecord tracks one fine-tune submission for a job: the provider
// handle returned at submission time and, once the run succeeds, the
// resulting model id. At most one record exists per job.
type FineTuneRecord struct {
	ID            string    `json:"id"`
	JobID         string    `json:"job_id"`
	ProviderJobID string    `json:"provider_job_id"` // handle returned by the tuning capability
	ModelID       string    `json:"model_id,omitempty"`
	BaseModel     string    `json:"base_model"`
	Raft          bool      `json:"raft"` // trained with retrieved-context distractors
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewFineTuneRecord creates a record for a submitted fine-tune run
func NewFineTuneRecord(jobID, providerJobID, baseModel string, raft bool) *FineTuneRecord {
	now := time.Now()
	return &FineTuneRecord{
		ID:            "ft_" + uuid.New().String(),
		JobID:         jobID,
		ProviderJobID: providerJobID,
		BaseModel:     baseModel,
		Raft:          raft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
