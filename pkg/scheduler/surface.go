package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/solacehq/pulse/pkg/eventstream"
	"github.com/solacehq/pulse/pkg/trigger"
)

// Create validates and persists a new trigger. Configuration errors (empty
// actions, unknown kinds, malformed conditions) are rejected here and never
// reach the scheduler loop.
func (s *Service) Create(ctx context.Context, input trigger.Create) (trigger.Trigger, error) {
	trig, err := trigger.New(s.deps.NowMs(), input)
	if err != nil {
		return trigger.Trigger{}, err
	}
	if err := s.deps.Triggers.Put(ctx, trig); err != nil {
		return trigger.Trigger{}, fmt.Errorf("persist trigger: %w", err)
	}
	s.publish(eventstream.Event{
		Type: eventstream.TypeTriggerAdded, AtMs: trig.CreatedAtMs,
		UserID: trig.UserID, TriggerID: trig.ID,
	})
	s.wakeScheduler()
	return trig, nil
}

// Update applies a partial patch and recomputes the next fire time.
func (s *Service) Update(ctx context.Context, id string, patch trigger.Patch) (trigger.Trigger, error) {
	stored, found, err := s.deps.Triggers.Get(ctx, id)
	if err != nil {
		return trigger.Trigger{}, err
	}
	if !found {
		return trigger.Trigger{}, fmt.Errorf("unknown trigger id: %s", id)
	}
	trig := *stored
	if err := trigger.ApplyPatch(&trig, patch); err != nil {
		return trigger.Trigger{}, err
	}
	now := s.deps.NowMs()
	trig.UpdatedAtMs = now
	if trig.Active {
		trig.NextTriggerAtMs = trigger.ComputeNextFireAtMs(trig, now)
	} else {
		trig.NextTriggerAtMs = nil
	}
	if err := s.deps.Triggers.Put(ctx, trig); err != nil {
		return trigger.Trigger{}, fmt.Errorf("persist trigger: %w", err)
	}
	s.publish(eventstream.Event{
		Type: eventstream.TypeTriggerUpdated, AtMs: now,
		UserID: trig.UserID, TriggerID: trig.ID,
	})
	s.wakeScheduler()
	return trig, nil
}

// Remove deletes a trigger.
func (s *Service) Remove(ctx context.Context, id string) (bool, error) {
	removed, err := s.deps.Triggers.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		s.publish(eventstream.Event{
			Type: eventstream.TypeTriggerRemoved, AtMs: s.deps.NowMs(), TriggerID: id,
		})
	}
	return removed, nil
}

// Get returns one trigger.
func (s *Service) Get(ctx context.Context, id string) (*trigger.Trigger, bool, error) {
	return s.deps.Triggers.Get(ctx, id)
}

// List returns triggers sorted by next fire time, soonest first. Triggers
// without a fire time sort last.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]trigger.Trigger, error) {
	all, err := s.deps.Triggers.List(ctx)
	if err != nil {
		return nil, err
	}
	var list []trigger.Trigger
	for _, trig := range all {
		if includeInactive || trig.Active {
			list = append(list, trig)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		var a, b int64
		if list[i].NextTriggerAtMs != nil {
			a = *list[i].NextTriggerAtMs
		}
		if list[j].NextTriggerAtMs != nil {
			b = *list[j].NextTriggerAtMs
		}
		if a == 0 {
			return false
		}
		if b == 0 {
			return true
		}
		return a < b
	})
	return list, nil
}

// Fire runs a trigger immediately, bypassing the due check but not policy
// evaluation: a fired trigger can still be suppressed or delayed. Blocks
// until the firing completes.
func (s *Service) Fire(id string) (trigger.ExecutionMode, error) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return "", errors.New("scheduler not started")
	}
	resp := make(chan taskResult, 1)
	s.enqueue(task{triggerID: id, forced: true, resp: resp})
	res := <-resp
	if res.err != nil {
		return res.mode, res.err
	}
	if !res.fired && res.reason == "not-found" {
		return "", fmt.Errorf("unknown trigger id: %s", id)
	}
	return res.mode, nil
}
