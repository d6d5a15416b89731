package pipeline

import (
	"context"

	"github.com/solacehq/pulse/pkg/trigger"
	"github.com/solacehq/pulse/pkg/usercontext"
)

// Status tracks an execution attempt. Completed and failed are terminal;
// a record is never mutated again once terminal.
type Status string

const (
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is the durable audit trail of one firing. The snapshot is fixed at
// start time even if the user's context changes mid-execution.
type Record struct {
	ID        string `json:"id"`
	TriggerID string `json:"triggerId"`
	UserID    string `json:"userId"`

	Mode   trigger.ExecutionMode `json:"mode"`
	Status Status                `json:"status"`

	ActionsPerformed []trigger.Action     `json:"actionsPerformed,omitempty"`
	Snapshot         *usercontext.Snapshot `json:"contextSnapshot,omitempty"`

	StartedAtMs   int64  `json:"startedAtMs"`
	CompletedAtMs *int64 `json:"completedAtMs,omitempty"`
	DurationMs    *int64 `json:"durationMs,omitempty"`
}

// RecordStore provides durable execution records. Put upserts by record ID.
type RecordStore interface {
	Put(ctx context.Context, rec Record) error
	ListByTrigger(ctx context.Context, triggerID string, limit int) ([]Record, error)
}
