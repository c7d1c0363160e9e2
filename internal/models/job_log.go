package models

import "time"

// Job log event types appended by the state machine and the pipelines.
const (
	EventJobCreated        = "job_created"
	EventJobCompleted      = "job_completed"
	EventJobFailed         = "job_failed"
	EventChunkIndexed      = "chunk_indexed"
	EventChunkFailed       = "chunk_failed"
	EventFineTuneRequested = "finetune_requested"
	EventFineTuneQueued    = "finetune_queued"
	EventFineTuneRunning   = "finetune_running"
	EventFineTuneSucceeded = "finetune_succeeded"
	EventFineTuneFailed    = "finetune_failed"
)

// JobLogEntry is one event in a job's append-only activity trail.
// Entries are never mutated or deleted; readers get them ordered by
// timestamp ascending.
type JobLogEntry struct {
	JobID     string    `json:"job_id"`
	EventType string    `json:"event_type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
