package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// ErrJobFailed is returned when a job is (or already was) in the failed
// state. Failed is absorbing: the recovery path is resubmission, never an
// automatic retry of the same job.
var ErrJobFailed = errors.New("ingestion job failed")

type Extractor interface {
	Extract(ctx context.Context, job IngestionJob) (*ExtractedDocument, error)
}

type Indexer interface {
	Index(ctx context.Context, doc *ExtractedDocument) error
}

type Persister interface {
	Persist(ctx context.Context, doc *ExtractedDocument) error
}

// Orchestrator sequences extraction, indexing and persistence for one job
// with deterministic replay over a durable event log.
//
// Control flow depends only on the job input and recorded events, never on
// wall-clock time or external state read inside the orchestrator body.
// Each stage's side effects are at-least-once: a crash between a side effect
// and its checkpoint re-runs the stage on the next attempt, which is safe
// because indexing upserts and persistence uses create-if-absent.
type Orchestrator struct {
	log       EventLog
	jobs      JobStore
	extractor Extractor
	indexer   Indexer
	persister Persister
}

func NewOrchestrator(log EventLog, jobs JobStore, e Extractor, i Indexer, p Persister) *Orchestrator {
	return &Orchestrator{log: log, jobs: jobs, extractor: e, indexer: i, persister: p}
}

// progress is the state reconstructed from a job's event history.
type progress struct {
	started   bool
	completed bool
	failed    bool
	done      map[Stage]bool
	extracted *ExtractedDocument
}

func replay(history []Event) (*progress, error) {
	p := &progress{done: map[Stage]bool{}}
	for _, e := range history {
		switch e.Kind {
		case EventJobStarted:
			p.started = true
		case EventStageCompleted:
			p.done[e.Stage] = true
			if e.Stage == StageExtract {
				var doc ExtractedDocument
				if err := json.Unmarshal(e.Payload, &doc); err != nil {
					return nil, fmt.Errorf("corrupt extract checkpoint: %w", err)
				}
				p.extracted = &doc
			}
		case EventJobCompleted:
			p.completed = true
		case EventJobFailed:
			p.failed = true
		}
	}
	return p, nil
}

// Run executes the job to a terminal state, resuming from the last durable
// checkpoint. It is safe to call any number of times for the same job.
//
// Errors from the event log or job store are infrastructure errors: the job
// is left non-terminal and a later run resumes it. Stage errors (other than
// indexing, which is best-effort) move the job to failed.
func (o *Orchestrator) Run(ctx context.Context, job IngestionJob) error {
	history, err := o.log.Load(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load event history: %w", err)
	}

	p, err := replay(history)
	if err != nil {
		return err
	}
	if p.completed {
		slog.InfoContext(ctx, "job already completed, nothing to do", "job_id", job.ID)
		return nil
	}
	if p.failed {
		return fmt.Errorf("%w: %s", ErrJobFailed, job.ID)
	}

	seq := len(history)
	appendEvent := func(kind EventKind, stage Stage, payload json.RawMessage) error {
		seq++
		return o.log.Append(ctx, job.ID, Event{Seq: seq, Kind: kind, Stage: stage, Payload: payload})
	}

	if !p.started {
		if err := appendEvent(EventJobStarted, "", nil); err != nil {
			return fmt.Errorf("append job_started: %w", err)
		}
	} else {
		slog.InfoContext(ctx, "resuming job from checkpoint", "job_id", job.ID, "events", len(history))
	}
	if err := o.jobs.UpdateJobStatus(ctx, job.ID, StatusRunning, "", ""); err != nil {
		slog.WarnContext(ctx, "failed to mark job running", "job_id", job.ID, "error", err)
	}

	// 1. Extraction
	doc := p.extracted
	if doc == nil {
		doc, err = o.extractor.Extract(ctx, job)
		if err != nil {
			return o.fail(ctx, job, StageExtract, err, appendEvent)
		}
		payload, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal extract checkpoint: %w", err)
		}
		if err := appendEvent(EventStageCompleted, StageExtract, payload); err != nil {
			return fmt.Errorf("checkpoint extract: %w", err)
		}
		slog.InfoContext(ctx, "extraction complete", "job_id", job.ID, "pages", doc.EndPage, "content_length", len(doc.Content))
	}

	// 2. Indexing. Best-effort: search availability never blocks durability
	// of the metadata record.
	if !p.done[StageIndex] {
		if err := o.indexer.Index(ctx, doc); err != nil {
			slog.WarnContext(ctx, "indexing failed, continuing", "job_id", job.ID, "error", err)
		}
		if err := appendEvent(EventStageCompleted, StageIndex, nil); err != nil {
			return fmt.Errorf("checkpoint index: %w", err)
		}
	}

	// 3. Persistence
	if !p.done[StagePersist] {
		if err := o.persister.Persist(ctx, doc); err != nil {
			return o.fail(ctx, job, StagePersist, err, appendEvent)
		}
		if err := appendEvent(EventStageCompleted, StagePersist, nil); err != nil {
			return fmt.Errorf("checkpoint persist: %w", err)
		}
	}

	if err := appendEvent(EventJobCompleted, "", nil); err != nil {
		return fmt.Errorf("append job_completed: %w", err)
	}
	if err := o.jobs.UpdateJobStatus(ctx, job.ID, StatusCompleted, "", ""); err != nil {
		slog.WarnContext(ctx, "failed to mark job completed", "job_id", job.ID, "error", err)
	}
	slog.InfoContext(ctx, "job completed", "job_id", job.ID, "file_name", job.FileName)
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, job IngestionJob, stage Stage, cause error, appendEvent func(EventKind, Stage, json.RawMessage) error) error {
	slog.ErrorContext(ctx, "stage failed", "job_id", job.ID, "stage", stage, "error", cause)
	payload, _ := json.Marshal(FailurePayload{Stage: stage, Reason: cause.Error()})
	if err := appendEvent(EventJobFailed, stage, payload); err != nil {
		// Could not record the failure; leave the job non-terminal so a
		// later run re-attempts the stage.
		return fmt.Errorf("append job_failed: %w", err)
	}
	if err := o.jobs.UpdateJobStatus(ctx, job.ID, StatusFailed, string(stage), cause.Error()); err != nil {
		slog.WarnContext(ctx, "failed to mark job failed", "job_id", job.ID, "error", err)
	}
	return fmt.Errorf("%s stage: %w", stage, cause)
}
