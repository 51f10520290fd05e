package ingest

import (
	"context"
	"encoding/json"
)

type Stage string

const (
	StageExtract Stage = "extract"
	StageIndex   Stage = "index"
	StagePersist Stage = "persist"
)

type EventKind string

const (
	EventJobStarted     EventKind = "job_started"
	EventStageCompleted EventKind = "stage_completed"
	EventJobCompleted   EventKind = "job_completed"
	EventJobFailed      EventKind = "job_failed"
)

// Event is one entry in a job's append-only history. Stage outputs are
// checkpointed in Payload so that replay can resume without re-running
// completed stages.
type Event struct {
	Seq     int             `json:"seq"`
	Kind    EventKind       `json:"kind"`
	Stage   Stage           `json:"stage,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// FailurePayload records why a job entered the failed state.
type FailurePayload struct {
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
}

// EventLog is the durable, per-job append-only history. Appends with an
// already-used sequence number must be no-ops so that a crashed run replaying
// over a landed write cannot duplicate history.
type EventLog interface {
	Append(ctx context.Context, jobID string, e Event) error
	Load(ctx context.Context, jobID string) ([]Event, error)
}
