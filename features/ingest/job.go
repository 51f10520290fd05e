package ingest

import (
	"context"
	"time"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// IngestionJob is one document's path through the ingestion workflow. It is
// owned exclusively by the orchestrator from creation until it reaches a
// terminal state.
type IngestionJob struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	SourceRef string `json:"source_ref"`
	Status    string `json:"status"`
	Stage     string `json:"stage,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ExtractedDocument is the output of the extraction stage. Produced once,
// checkpointed in the event log, and immutable thereafter.
type ExtractedDocument struct {
	JobID        string    `json:"job_id"`
	FileName     string    `json:"file_name"`
	SourceRef    string    `json:"source_ref"`
	DocumentType string    `json:"document_type"`
	StartPage    int       `json:"start_page"`
	EndPage      int       `json:"end_page"`
	Content      string    `json:"content"`
	ExtractedAt  time.Time `json:"extracted_at"`
}

// IndexRecord is the searchable record upserted into the vector index.
// Vector is nil when embedding generation failed; the record must still be
// retrievable by its non-vector fields.
type IndexRecord struct {
	ID           string
	FileName     string
	SourceRef    string
	DocumentType string
	Content      string
	Vector       []float32
	UploadedAt   time.Time
}

type JobStore interface {
	CreateJob(ctx context.Context, job *IngestionJob) error
	UpdateJobStatus(ctx context.Context, id, status, stage, errMsg string) error
	GetJob(ctx context.Context, id string) (*IngestionJob, error)
	ListUnfinishedJobs(ctx context.Context) ([]IngestionJob, error)
}
