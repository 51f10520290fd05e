package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"doculens/features/document"
	"doculens/internal/config"
	"doculens/internal/middleware"
)

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

// TaskPayload is the queue message that hands a job to a workflow consumer.
type TaskPayload struct {
	JobID         string `json:"job_id"`
	FileName      string `json:"file_name"`
	SourceRef     string `json:"source_ref"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type DocumentReader interface {
	List(ctx context.Context) ([]document.MetadataRecord, error)
	GetByDocumentID(ctx context.Context, documentID string) (*document.MetadataRecord, error)
}

type Service struct {
	orchestrator *Orchestrator
	jobs         JobStore
	pub          TaskPublisher
	docs         DocumentReader
	indexer      Indexer
	reindexSize  int
}

func NewService(orc *Orchestrator, jobs JobStore, pub TaskPublisher, docs DocumentReader, indexer Indexer, reindexSize int) *Service {
	if reindexSize <= 0 {
		reindexSize = 1
	}
	return &Service{
		orchestrator: orc,
		jobs:         jobs,
		pub:          pub,
		docs:         docs,
		indexer:      indexer,
		reindexSize:  reindexSize,
	}
}

// StartIngestion records a new job and hands it to the queue. If publishing
// fails the job stays pending and the startup recovery sweep re-enqueues it.
func (s *Service) StartIngestion(ctx context.Context, fileName, sourceRef string) (string, error) {
	job := &IngestionJob{
		ID:        uuid.New().String(),
		FileName:  fileName,
		SourceRef: sourceRef,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	if err := s.publish(ctx, *job); err != nil {
		slog.WarnContext(ctx, "failed to publish ingestion task, recovery sweep will retry", "job_id", job.ID, "error", err)
	} else {
		slog.InfoContext(ctx, "ingestion started", "job_id", job.ID, "file_name", fileName)
	}
	return job.ID, nil
}

// Run executes (or resumes) one job. Called by the queue consumer.
func (s *Service) Run(ctx context.Context, jobID string) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	return s.orchestrator.Run(ctx, *job)
}

func (s *Service) GetJob(ctx context.Context, jobID string) (*IngestionJob, error) {
	return s.jobs.GetJob(ctx, jobID)
}

// Recover re-enqueues every job that never reached a terminal state. Safe to
// run on every process start: execution resumes from the last checkpoint, so
// completed stages are not re-run.
func (s *Service) Recover(ctx context.Context) (int, error) {
	jobs, err := s.jobs.ListUnfinishedJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unfinished jobs: %w", err)
	}

	recovered := 0
	for _, job := range jobs {
		if err := s.publish(ctx, job); err != nil {
			slog.WarnContext(ctx, "failed to re-enqueue job", "job_id", job.ID, "error", err)
			continue
		}
		recovered++
	}
	if recovered > 0 {
		slog.InfoContext(ctx, "recovery sweep re-enqueued jobs", "count", recovered)
	}
	return recovered, nil
}

// Reindex re-runs the indexing stage for every stored document over a worker
// pool. This is the operator-facing path for repairing best-effort index
// failures out-of-band.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	recs, err := s.docs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}

	pool, err := ants.NewPool(s.reindexSize)
	if err != nil {
		return 0, fmt.Errorf("create reindex pool: %w", err)
	}
	defer pool.Release()

	var (
		wg      sync.WaitGroup
		indexed int64
	)
	for _, rec := range recs {
		rec := rec
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			full, err := s.docs.GetByDocumentID(ctx, rec.DocumentID)
			if err != nil {
				slog.WarnContext(ctx, "reindex skipped document", "document_id", rec.DocumentID, "error", err)
				return
			}
			doc := &ExtractedDocument{
				JobID:        full.DocumentID,
				FileName:     full.FileName,
				SourceRef:    full.SourceRef,
				DocumentType: full.DocumentType,
				StartPage:    full.StartPage,
				EndPage:      full.EndPage,
				Content:      full.Content,
				ExtractedAt:  full.UploadedAt,
			}
			if err := s.indexer.Index(ctx, doc); err != nil {
				slog.WarnContext(ctx, "reindex failed for document", "document_id", rec.DocumentID, "error", err)
				return
			}
			atomic.AddInt64(&indexed, 1)
		}); err != nil {
			wg.Done()
			slog.WarnContext(ctx, "reindex pool submit failed", "document_id", rec.DocumentID, "error", err)
		}
	}
	wg.Wait()

	slog.InfoContext(ctx, "reindex sweep finished", "documents", len(recs), "indexed", indexed)
	return int(indexed), nil
}

func (s *Service) publish(ctx context.Context, job IngestionJob) error {
	payload, err := json.Marshal(TaskPayload{
		JobID:         job.ID,
		FileName:      job.FileName,
		SourceRef:     job.SourceRef,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
	if err != nil {
		return err
	}
	return s.pub.Publish(config.TopicIngestTask, payload)
}
