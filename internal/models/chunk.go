package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentChunk is a bounded segment of a source document, the unit of
// embedding and retrieval. Chunks are owned by exactly one job, created
// during ingestion and immutable afterwards. Embedding is nil until the
// chunk has been embedded; chunks whose embedding failed stay nil and are
// excluded from the index.
type DocumentChunk struct {
	ID         string    `json:"id"`
	JobID      string    `json:"job_id"`
	Seq        int       `json:"seq"`         // position within the job, ascending across documents
	SourceFile string    `json:"source_file"` // filename the chunk was extracted from
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewDocumentChunk creates a chunk for a job
func NewDocumentChunk(jobID string, seq int, sourceFile, content string) *DocumentChunk {
	return &DocumentChunk{
		ID:         "chunk_" + uuid.New().String(),
		JobID:      jobID,
		Seq:        seq,
		SourceFile: sourceFile,
		Content:    content,
		CreatedAt:  time.Now(),
	}
}

// Embedded returns true once the chunk carries an embedding vector
func (c *DocumentChunk) Embedded() bool {
	return len(c.Embedding) > 0
}
