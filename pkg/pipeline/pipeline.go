// Package pipeline runs a trigger's ordered action list against the
// actuator registry, recording per-action outcomes.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.mau.fi/util/ptr"

	"github.com/solacehq/pulse/pkg/eventstream"
	"github.com/solacehq/pulse/pkg/trigger"
	"github.com/solacehq/pulse/pkg/usercontext"
)

// DefaultActionDelay paces consecutive actions of one firing. Downstream
// actuators sit on rate-limited APIs, so the delay is a correctness
// requirement, never parallelized away.
const DefaultActionDelay = 500 * time.Millisecond

// Performer dispatches one action. Satisfied by *actuator.Registry.
type Performer interface {
	Perform(ctx context.Context, action trigger.Action) error
}

// Deps provides integration hooks for the runner.
type Deps struct {
	NowMs    func() int64
	Log      zerolog.Logger
	Registry Performer
	Records  RecordStore
	Events   *eventstream.Bus

	// ActionDelay overrides DefaultActionDelay when positive.
	ActionDelay time.Duration
	// Sleep overrides the cancellable pacing sleep, for virtual-time tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Runner executes firings one action at a time.
type Runner struct {
	deps Deps
}

func NewRunner(deps Deps) *Runner {
	if deps.NowMs == nil {
		deps.NowMs = func() int64 { return time.Now().UnixMilli() }
	}
	if deps.ActionDelay <= 0 {
		deps.ActionDelay = DefaultActionDelay
	}
	if deps.Sleep == nil {
		deps.Sleep = sleepCtx
	}
	return &Runner{deps: deps}
}

// Execute runs every action of trig in list order. Individual action
// failures are recorded and skipped; the firing still completes. The
// returned record is terminal: completed normally, failed only if the
// context was cancelled mid-firing.
//
// Suppressed and delayed firings must never reach Execute; the runner
// refuses them rather than quietly producing an execution artifact.
func (r *Runner) Execute(ctx context.Context, trig trigger.Trigger, mode trigger.ExecutionMode, snap *usercontext.Snapshot) (Record, error) {
	if mode == trigger.ModeSuppress || mode == trigger.ModeDelay {
		return Record{}, fmt.Errorf("refusing to execute trigger %s in mode %s", trig.ID, mode)
	}

	startedAt := r.deps.NowMs()
	rec := Record{
		ID:          xid.New().String(),
		TriggerID:   trig.ID,
		UserID:      trig.UserID,
		Mode:        mode,
		Status:      StatusExecuting,
		Snapshot:    snap,
		StartedAtMs: startedAt,
	}
	log := r.deps.Log.With().Str("trigger_id", trig.ID).Str("record_id", rec.ID).Str("mode", string(mode)).Logger()

	if err := r.putRecord(ctx, rec); err != nil {
		// The in-memory execution still completes, but a missing audit row
		// is a serious inconsistency and must not be swallowed.
		log.Error().Err(err).Msg("Failed to persist executing record")
	}

	var cancelled error
	for i, action := range trig.Actions {
		if i > 0 {
			if err := r.deps.Sleep(ctx, r.deps.ActionDelay); err != nil {
				cancelled = err
				break
			}
		}
		if err := r.deps.Registry.Perform(ctx, action); err != nil {
			log.Warn().Err(err).Str("action_kind", string(action.Kind)).Int("action_index", i).
				Msg("Action failed, continuing with remaining actions")
			r.deps.Events.Publish(eventstream.Event{
				Type:       eventstream.TypeActionFailed,
				AtMs:       r.deps.NowMs(),
				UserID:     trig.UserID,
				TriggerID:  trig.ID,
				ActionKind: string(action.Kind),
				Error:      err.Error(),
			})
			continue
		}
		rec.ActionsPerformed = append(rec.ActionsPerformed, action)
	}

	endedAt := r.deps.NowMs()
	rec.CompletedAtMs = ptr.Ptr(endedAt)
	rec.DurationMs = ptr.Ptr(max(0, endedAt-startedAt))
	if cancelled != nil {
		rec.Status = StatusFailed
	} else {
		rec.Status = StatusCompleted
	}
	if err := r.putRecord(ctx, rec); err != nil {
		log.Error().Err(err).Msg("Failed to persist terminal record")
	}
	log.Info().Str("status", string(rec.Status)).
		Int("actions_total", len(trig.Actions)).
		Int("actions_performed", len(rec.ActionsPerformed)).
		Int64("duration_ms", *rec.DurationMs).
		Msg("Trigger firing finished")

	if cancelled != nil {
		return rec, fmt.Errorf("firing cancelled after %d of %d actions: %w",
			len(rec.ActionsPerformed), len(trig.Actions), cancelled)
	}
	return rec, nil
}

// putRecord persists under a detached context so cancellation cannot leave
// the terminal record unwritten.
func (r *Runner) putRecord(ctx context.Context, rec Record) error {
	if r.deps.Records == nil {
		return nil
	}
	putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return r.deps.Records.Put(putCtx, rec)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
