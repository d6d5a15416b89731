// Package actuator maps action kinds to the external capabilities that
// perform them. The engine decides what to do; actuators do it.
package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/solacehq/pulse/pkg/trigger"
)

// DefaultTimeout bounds a single actuator call. Downstream integrations
// block on network I/O; a hung send must become an action failure, not a
// wedged pipeline.
const DefaultTimeout = 10 * time.Second

// Actuator performs one concrete side effect. Implementations must tolerate
// a retried call, but the engine itself attempts each action exactly once
// per firing.
type Actuator interface {
	Perform(ctx context.Context, action trigger.Action) error
}

// Func adapts a plain function to the Actuator interface.
type Func func(ctx context.Context, action trigger.Action) error

func (f Func) Perform(ctx context.Context, action trigger.Action) error {
	return f(ctx, action)
}

// Registry dispatches actions to registered capabilities with a bounded
// per-call timeout.
type Registry struct {
	mu      sync.RWMutex
	caps    map[trigger.ActionKind]Actuator
	timeout time.Duration
}

func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{
		caps:    make(map[trigger.ActionKind]Actuator),
		timeout: timeout,
	}
}

// Register binds a capability to an action kind, replacing any previous
// binding. Unknown kinds are rejected so misconfiguration surfaces at
// startup rather than at fire time.
func (r *Registry) Register(kind trigger.ActionKind, act Actuator) error {
	if !trigger.KnownActionKind(kind) {
		return fmt.Errorf("unknown action kind: %q", kind)
	}
	if act == nil {
		return fmt.Errorf("actuator required for %q", kind)
	}
	r.mu.Lock()
	r.caps[kind] = act
	r.mu.Unlock()
	return nil
}

// Supports reports whether a capability is bound for kind.
func (r *Registry) Supports(kind trigger.ActionKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.caps[kind]
	return ok
}

// Perform dispatches one action. The call runs under the registry timeout;
// a timeout is reported as this action's failure.
func (r *Registry) Perform(ctx context.Context, action trigger.Action) error {
	if !trigger.KnownActionKind(action.Kind) {
		return fmt.Errorf("unknown action kind: %q", action.Kind)
	}
	r.mu.RLock()
	act, ok := r.caps[action.Kind]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no actuator registered for %q", action.Kind)
	}
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := act.Perform(callCtx, action); err != nil {
		return fmt.Errorf("actuator %s: %w", action.Kind, err)
	}
	return nil
}
