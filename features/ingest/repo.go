package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresRepo stores jobs and their append-only event histories. The event
// table has a UNIQUE (job_id, seq) constraint; Append relies on ON CONFLICT
// DO NOTHING so that a replaying run racing a landed write is a no-op.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// --- EventLog ---

func (r *PostgresRepo) Append(ctx context.Context, jobID string, e Event) error {
	query := `INSERT INTO ingestion_events (job_id, seq, kind, stage, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (job_id, seq) DO NOTHING`
	var payload interface{}
	if len(e.Payload) > 0 {
		payload = []byte(e.Payload)
	}
	_, err := r.db.ExecContext(ctx, query, jobID, e.Seq, string(e.Kind), string(e.Stage), payload)
	return err
}

func (r *PostgresRepo) Load(ctx context.Context, jobID string) ([]Event, error) {
	query := `SELECT seq, kind, stage, payload FROM ingestion_events WHERE job_id = $1 ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e       Event
			kind    string
			stage   string
			payload []byte
		)
		if err := rows.Scan(&e.Seq, &kind, &stage, &payload); err != nil {
			return nil, err
		}
		e.Kind = EventKind(kind)
		e.Stage = Stage(stage)
		e.Payload = payload
		events = append(events, e)
	}
	return events, rows.Err()
}

// --- JobStore ---

func (r *PostgresRepo) CreateJob(ctx context.Context, job *IngestionJob) error {
	query := `INSERT INTO ingestion_jobs (id, file_name, source_ref, status) VALUES ($1, $2, $3, $4)`
	job.Status = StatusPending
	_, err := r.db.ExecContext(ctx, query, job.ID, job.FileName, job.SourceRef, job.Status)
	return err
}

func (r *PostgresRepo) UpdateJobStatus(ctx context.Context, id, status, stage, errMsg string) error {
	query := `UPDATE ingestion_jobs SET status = $1, stage = $2, error = $3, updated_at = NOW() WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query, status, stage, errMsg, id)
	return err
}

func (r *PostgresRepo) GetJob(ctx context.Context, id string) (*IngestionJob, error) {
	job := &IngestionJob{}
	query := `SELECT id, file_name, source_ref, status, stage, error FROM ingestion_jobs WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.FileName, &job.SourceRef, &job.Status, &job.Stage, &job.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ListUnfinishedJobs returns jobs that never reached a terminal state, in
// submission order. Used by the startup recovery sweep.
func (r *PostgresRepo) ListUnfinishedJobs(ctx context.Context) ([]IngestionJob, error) {
	query := `SELECT id, file_name, source_ref, status, stage, error FROM ingestion_jobs
		WHERE status IN ($1, $2) ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, StatusPending, StatusRunning)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []IngestionJob
	for rows.Next() {
		var job IngestionJob
		if err := rows.Scan(&job.ID, &job.FileName, &job.SourceRef, &job.Status, &job.Stage, &job.Error); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
