package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"doculens/internal/middleware"
)

// TaskConsumer executes ingestion jobs delivered over the queue. Returning an
// error requeues the message; that is only done for infrastructure failures
// (event log unreachable) where a later replay can make progress. Jobs that
// reach the failed state are terminal and are not requeued.
type TaskConsumer struct {
	service *Service
}

func NewTaskConsumer(service *Service) *TaskConsumer {
	return &TaskConsumer{service: service}
}

func (c *TaskConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload TaskPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		slog.Error("invalid task message, dropping", "error", err)
		return nil
	}

	correlationID := payload.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	ctx := middleware.WithCorrelationID(context.Background(), correlationID)

	if payload.JobID == "" {
		slog.ErrorContext(ctx, "task message missing job_id, dropping")
		return nil
	}

	err := c.service.Run(ctx, payload.JobID)
	if errors.Is(err, ErrJobFailed) {
		// Terminal. Resubmission is the recovery path.
		return nil
	}
	if err != nil {
		if job, jerr := c.service.GetJob(ctx, payload.JobID); jerr == nil && job.Status == StatusFailed {
			slog.ErrorContext(ctx, "job reached failed state", "job_id", payload.JobID, "stage", job.Stage, "error", err)
			return nil
		}
		slog.ErrorContext(ctx, "job run failed, requeueing", "job_id", payload.JobID, "error", err)
		return err
	}
	return nil
}
