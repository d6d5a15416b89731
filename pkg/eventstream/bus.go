// Package eventstream fans engine events out to in-process subscribers and,
// optionally, websocket clients. Observability only: the engine never
// depends on anyone listening.
package eventstream

import "sync"

// Event is emitted on trigger lifecycle changes, firings, and batch
// progress. Unused fields stay zero.
type Event struct {
	Type      string `json:"type"`
	AtMs      int64  `json:"atMs"`
	UserID    string `json:"userId,omitempty"`
	TriggerID string `json:"triggerId,omitempty"`
	JobID     string `json:"jobId,omitempty"`

	Mode       string `json:"mode,omitempty"`
	Status     string `json:"status,omitempty"`
	Error      string `json:"error,omitempty"`
	ActionKind string `json:"actionKind,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
	NextAtMs   int64  `json:"nextAtMs,omitempty"`

	Sent   int `json:"sent,omitempty"`
	Failed int `json:"failed,omitempty"`
	Total  int `json:"total,omitempty"`
}

// Event types.
const (
	TypeTriggerAdded      = "trigger.added"
	TypeTriggerUpdated    = "trigger.updated"
	TypeTriggerRemoved    = "trigger.removed"
	TypeTriggerStarted    = "trigger.started"
	TypeTriggerFinished   = "trigger.finished"
	TypeTriggerSuppressed = "trigger.suppressed"
	TypeTriggerDelayed    = "trigger.delayed"
	TypeActionFailed      = "action.failed"
	TypeBatchProgress     = "batch.progress"
	TypeBatchFinished     = "batch.finished"
)

// Bus is a non-blocking broadcast channel set. Slow subscribers lose events
// rather than stalling the engine.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns a buffered event channel and a cancel function. The
// channel is closed on cancel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()
	cancel := func() {
		b.mu.Lock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers evt to every subscriber that has buffer room. A nil bus
// is a no-op so callers can leave events unwired.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
