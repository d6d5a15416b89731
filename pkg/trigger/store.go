package trigger

import "context"

// Store provides durable trigger state. Implementations live in pkg/storage.
type Store interface {
	Get(ctx context.Context, id string) (*Trigger, bool, error)
	List(ctx context.Context) ([]Trigger, error)
	Put(ctx context.Context, trig Trigger) error
	Delete(ctx context.Context, id string) (bool, error)
}
