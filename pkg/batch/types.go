package batch

import "context"

// Status tracks a job's lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Recipient is one fan-out target.
type Recipient struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
}

// Progress counts attempts. Total is fixed at creation; Sent+Failed only
// ever grows toward Total.
type Progress struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}

// Job is a rate-limited sequential fan-out of one message template to many
// recipients.
type Job struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Title    string `json:"title"`

	Recipients []Recipient `json:"recipients"`
	Template   string      `json:"messageTemplate"`
	Platform   string      `json:"platform"`

	Status   Status   `json:"status"`
	Progress Progress `json:"progress"`

	CreatedAtMs int64 `json:"createdAtMs"`
	UpdatedAtMs int64 `json:"updatedAtMs"`
}

// JobStore provides durable batch job state. Put upserts by job ID.
type JobStore interface {
	Get(ctx context.Context, id string) (*Job, bool, error)
	Put(ctx context.Context, job Job) error
	List(ctx context.Context, userID string) ([]Job, error)
}
