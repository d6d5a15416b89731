// Package scheduler owns the set of active triggers, decides which are due,
// and hands each due firing to policy evaluation and the execution pipeline.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/solacehq/pulse/pkg/eventstream"
	"github.com/solacehq/pulse/pkg/pipeline"
	"github.com/solacehq/pulse/pkg/policy"
	"github.com/solacehq/pulse/pkg/runlog"
	"github.com/solacehq/pulse/pkg/trigger"
	"github.com/solacehq/pulse/pkg/usercontext"
)

const (
	// DefaultTickInterval drives the due-check loop.
	DefaultTickInterval = time.Minute
	// DefaultLookAhead is the forward-looking due window checked each tick.
	DefaultLookAhead = 5 * time.Minute

	defaultWorkers = 4
	taskQueueSize  = 1024
)

// Executor runs one firing. Satisfied by *pipeline.Runner.
type Executor interface {
	Execute(ctx context.Context, trig trigger.Trigger, mode trigger.ExecutionMode, snap *usercontext.Snapshot) (pipeline.Record, error)
}

// Deps provides integration hooks for the scheduler service.
type Deps struct {
	NowMs    func() int64
	Log      zerolog.Logger
	Triggers trigger.Store
	Context  usercontext.Reader
	Runner   Executor
	Events   *eventstream.Bus

	// RunLogDir enables the jsonl firing history when non-empty.
	RunLogDir string

	TickInterval      time.Duration
	LookAhead         time.Duration
	MaxConcurrentRuns int
}

type task struct {
	triggerID string
	forced    bool
	resp      chan taskResult
}

type taskResult struct {
	fired  bool
	mode   trigger.ExecutionMode
	reason string
	err    error
}

// Service schedules triggers and runs them with a worker pool. The
// scheduler loop never executes firings inline; it only enqueues tasks.
type Service struct {
	deps Deps
	log  zerolog.Logger

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc

	wakeCh chan struct{}
	taskCh chan task

	qmu      sync.Mutex
	queued   map[string]struct{}
	inFlight map[string]struct{}

	schedulerWg sync.WaitGroup
	workersWg   sync.WaitGroup
}

func NewService(deps Deps) *Service {
	if deps.NowMs == nil {
		deps.NowMs = func() int64 { return time.Now().UnixMilli() }
	}
	if deps.TickInterval <= 0 {
		deps.TickInterval = DefaultTickInterval
	}
	if deps.LookAhead <= 0 {
		deps.LookAhead = DefaultLookAhead
	}
	if deps.MaxConcurrentRuns < 1 {
		deps.MaxConcurrentRuns = defaultWorkers
	}
	return &Service{
		deps: deps,
		log:  deps.Log.With().Str("component", "scheduler").Logger(),
	}
}

// Start launches the scheduler loop and worker pool. Safe to call twice.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if s.deps.Triggers == nil || s.deps.Runner == nil {
		return errors.New("scheduler requires trigger store and runner")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.wakeCh = make(chan struct{}, 1)
	s.taskCh = make(chan task, taskQueueSize)
	s.queued = make(map[string]struct{})
	s.inFlight = make(map[string]struct{})

	for i := 0; i < s.deps.MaxConcurrentRuns; i++ {
		s.workersWg.Add(1)
		go s.workerLoop()
	}
	s.schedulerWg.Add(1)
	go s.schedulerLoop()

	s.started = true
	s.log.Info().
		Dur("tick_interval", s.deps.TickInterval).
		Dur("look_ahead", s.deps.LookAhead).
		Int("workers", s.deps.MaxConcurrentRuns).
		Msg("Scheduler started")
	return nil
}

// Stop cancels in-flight firings and waits for the loop and workers.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.started = false
	s.mu.Unlock()

	s.log.Info().Msg("Scheduler stopping")
	if cancel != nil {
		cancel()
	}
	s.schedulerWg.Wait()
	s.workersWg.Wait()
}

func (s *Service) wakeScheduler() {
	s.mu.Lock()
	ch := s.wakeCh
	started := s.started
	s.mu.Unlock()
	if !started || ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (s *Service) schedulerLoop() {
	defer s.schedulerWg.Done()
	ticker := time.NewTicker(s.deps.TickInterval)
	defer ticker.Stop()

	// Kick once on start so already-due triggers fire immediately.
	s.tick()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wakeCh:
		case <-ticker.C:
		}
		s.tick()
	}
}

// tick enqueues every due trigger once. A trigger already queued or in
// flight is skipped, so one firing never becomes two.
func (s *Service) tick() {
	now := s.deps.NowMs()
	due, err := s.DueWithin(s.ctx, now)
	if err != nil {
		s.log.Warn().Err(err).Msg("Scheduler tick failed, retrying next tick")
		return
	}
	if len(due) == 0 {
		return
	}
	s.log.Debug().Int("due", len(due)).Msg("Scheduler tick processing due triggers")
	for _, trig := range due {
		s.enqueue(task{triggerID: trig.ID})
	}
}

// DueWithin returns every active trigger whose next fire time falls inside
// the forward-looking window ending at now+lookAhead.
func (s *Service) DueWithin(ctx context.Context, nowMs int64) ([]trigger.Trigger, error) {
	triggers, err := s.deps.Triggers.List(ctx)
	if err != nil {
		return nil, err
	}
	horizon := nowMs + s.deps.LookAhead.Milliseconds()
	var due []trigger.Trigger
	for _, trig := range triggers {
		if !trig.Active || trig.NextTriggerAtMs == nil {
			continue
		}
		if *trig.NextTriggerAtMs <= horizon {
			due = append(due, trig)
		}
	}
	return due, nil
}

func (s *Service) enqueue(t task) {
	if t.resp == nil && !t.forced {
		s.qmu.Lock()
		if _, ok := s.queued[t.triggerID]; ok {
			s.qmu.Unlock()
			return
		}
		if _, ok := s.inFlight[t.triggerID]; ok {
			s.qmu.Unlock()
			return
		}
		s.queued[t.triggerID] = struct{}{}
		s.qmu.Unlock()
	}
	select {
	case s.taskCh <- t:
	default:
		if t.resp == nil && !t.forced {
			s.qmu.Lock()
			delete(s.queued, t.triggerID)
			s.qmu.Unlock()
		}
		s.log.Warn().Str("trigger_id", t.triggerID).Msg("Task queue full, trigger retries next tick")
		if t.resp != nil {
			t.resp <- taskResult{err: errors.New("scheduler task queue full")}
		}
	}
}

func (s *Service) workerLoop() {
	defer s.workersWg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case t := <-s.taskCh:
			s.runTask(t)
		}
	}
}

func (s *Service) runTask(t task) {
	s.qmu.Lock()
	delete(s.queued, t.triggerID)
	s.inFlight[t.triggerID] = struct{}{}
	s.qmu.Unlock()
	defer func() {
		s.qmu.Lock()
		delete(s.inFlight, t.triggerID)
		s.qmu.Unlock()
	}()

	res := s.fireOnce(t.triggerID, t.forced)
	if res.err != nil {
		s.log.Error().Err(res.err).Str("trigger_id", t.triggerID).Msg("Trigger firing failed")
	}
	if t.resp != nil {
		t.resp <- res
	}
}

// fireOnce drives one firing through the state machine:
// due → mode-resolved → {suppressed | delayed | executing → completed}.
func (s *Service) fireOnce(triggerID string, forced bool) taskResult {
	now := s.deps.NowMs()
	trig, found, err := s.deps.Triggers.Get(s.ctx, triggerID)
	if err != nil {
		return taskResult{err: err}
	}
	if !found {
		return taskResult{reason: "not-found"}
	}
	if !trig.Active {
		return taskResult{reason: "inactive"}
	}
	if !forced {
		horizon := now + s.deps.LookAhead.Milliseconds()
		if trig.NextTriggerAtMs == nil || *trig.NextTriggerAtMs > horizon {
			return taskResult{reason: "not-due"}
		}
	}
	if !trigger.AllowedOnDay(*trig, now) {
		s.deferToAllowedDay(trig, now)
		return taskResult{reason: "day-not-allowed"}
	}

	snap := s.readContext(trig.UserID)
	mode := policy.Resolve(*trig, snap)

	switch mode {
	case trigger.ModeSuppress:
		// Suppression consumes the firing without any execution artifact.
		s.log.Info().Str("trigger_id", trig.ID).Msg("Firing suppressed by policy")
		s.publish(eventstream.Event{
			Type: eventstream.TypeTriggerSuppressed, AtMs: now,
			UserID: trig.UserID, TriggerID: trig.ID, Mode: string(mode),
		})
		s.appendRunLog(trig.ID, runlog.Entry{TS: now, TriggerID: trig.ID, Action: "suppressed", Mode: string(mode)})
		trig.LastTriggeredAtMs = &now
		s.advanceAfterFiring(trig, now, false)
		return taskResult{mode: mode, reason: "suppressed"}
	case trigger.ModeDelay:
		// Delayed firings keep their fire time and are re-evaluated against
		// fresh context on the next tick. No backoff, no cap: the policy
		// check is cheap and context can change any minute.
		s.log.Info().Str("trigger_id", trig.ID).Msg("Firing delayed by policy")
		s.publish(eventstream.Event{
			Type: eventstream.TypeTriggerDelayed, AtMs: now,
			UserID: trig.UserID, TriggerID: trig.ID, Mode: string(mode),
		})
		s.appendRunLog(trig.ID, runlog.Entry{TS: now, TriggerID: trig.ID, Action: "delayed", Mode: string(mode)})
		return taskResult{mode: mode, reason: "delayed"}
	}

	s.publish(eventstream.Event{
		Type: eventstream.TypeTriggerStarted, AtMs: now,
		UserID: trig.UserID, TriggerID: trig.ID, Mode: string(mode),
	})
	rec, execErr := s.deps.Runner.Execute(s.ctx, *trig, mode, snap)
	status := string(rec.Status)
	evt := eventstream.Event{
		Type: eventstream.TypeTriggerFinished, AtMs: s.deps.NowMs(),
		UserID: trig.UserID, TriggerID: trig.ID, Mode: string(mode), Status: status,
	}
	if rec.DurationMs != nil {
		evt.DurationMs = *rec.DurationMs
	}
	if execErr != nil {
		evt.Error = execErr.Error()
	}
	s.publish(evt)

	entry := runlog.Entry{
		TS: s.deps.NowMs(), TriggerID: trig.ID, Action: "finished",
		Mode: string(mode), Status: status, RunAtMs: rec.StartedAtMs,
		DurationMs: evt.DurationMs, Error: evt.Error,
	}
	s.appendRunLog(trig.ID, entry)

	// Failed or not, the attempt consumed this firing: record it and move
	// to the next natural fire time. No same-tick retry.
	trig.LastTriggeredAtMs = &rec.StartedAtMs
	s.advanceAfterFiring(trig, s.deps.NowMs(), execErr != nil)
	return taskResult{fired: true, mode: mode, err: execErr}
}

// advanceAfterFiring moves the trigger to its next fire time, or
// deactivates a one-shot that has fired cleanly.
func (s *Service) advanceAfterFiring(trig *trigger.Trigger, nowMs int64, failed bool) {
	trig.NextTriggerAtMs = trigger.ComputeNextFireAtMs(*trig, nowMs)
	if trig.NextTriggerAtMs == nil && !failed {
		trig.Active = false
	}
	trig.UpdatedAtMs = nowMs
	if err := s.deps.Triggers.Put(s.ctx, *trig); err != nil {
		s.log.Error().Err(err).Str("trigger_id", trig.ID).Msg("Failed to persist trigger after firing")
	}
	s.wakeScheduler()
}

// deferToAllowedDay pushes the fire time forward in whole days, preserving
// time of day, until it lands on a permitted weekday.
func (s *Service) deferToAllowedDay(trig *trigger.Trigger, nowMs int64) {
	at := nowMs
	if trig.NextTriggerAtMs != nil {
		at = *trig.NextTriggerAtMs
	}
	const dayMs = 24 * 60 * 60 * 1000
	for i := 0; i < 7; i++ {
		at += dayMs
		if trigger.AllowedOnDay(*trig, at) {
			trig.NextTriggerAtMs = &at
			trig.UpdatedAtMs = nowMs
			if err := s.deps.Triggers.Put(s.ctx, *trig); err != nil {
				s.log.Error().Err(err).Str("trigger_id", trig.ID).Msg("Failed to persist deferred trigger")
			}
			return
		}
	}
	// Every weekday disallowed: validation prevents this, but never spin.
	s.log.Warn().Str("trigger_id", trig.ID).Msg("No allowed weekday found, leaving trigger as-is")
}

// readContext loads the user's snapshot. On read failure the policy
// evaluator receives nil and fails closed to ring-ask-execute.
func (s *Service) readContext(userID string) *usercontext.Snapshot {
	if s.deps.Context == nil {
		return nil
	}
	snap, err := s.deps.Context.Read(s.ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Context read failed, failing closed")
		return nil
	}
	return snap
}

func (s *Service) publish(evt eventstream.Event) {
	s.deps.Events.Publish(evt)
}

func (s *Service) appendRunLog(triggerID string, entry runlog.Entry) {
	if s.deps.RunLogDir == "" {
		return
	}
	path := runlog.Path(s.deps.RunLogDir, triggerID)
	if err := runlog.Append(path, entry, 0, 0); err != nil {
		s.log.Warn().Err(err).Str("trigger_id", triggerID).Msg("Failed to append run log")
	}
}
