// Package batch runs rate-limited message fan-out jobs with durable
// progress tracking.
package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/solacehq/pulse/pkg/eventstream"
	"github.com/solacehq/pulse/pkg/trigger"
)

// DefaultSendDelay is the hard per-recipient pacing floor. It protects
// downstream messaging rate limits and dominates batch latency; it is never
// best-effort.
const DefaultSendDelay = 2 * time.Second

// Sender performs one message send. Satisfied by *actuator.Registry.
type Sender interface {
	Perform(ctx context.Context, action trigger.Action) error
}

// Deps provides integration hooks for the dispatcher.
type Deps struct {
	NowMs  func() int64
	Log    zerolog.Logger
	Jobs   JobStore
	Sender Sender
	Events *eventstream.Bus

	// SendDelay overrides DefaultSendDelay when positive.
	SendDelay time.Duration
	// Sleep overrides the cancellable rate-limit sleep, for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Dispatcher runs batch jobs sequentially per job. Independent jobs may run
// concurrently with each other and with the trigger scheduler.
type Dispatcher struct {
	deps Deps
}

func NewDispatcher(deps Deps) *Dispatcher {
	if deps.NowMs == nil {
		deps.NowMs = func() int64 { return time.Now().UnixMilli() }
	}
	if deps.SendDelay <= 0 {
		deps.SendDelay = DefaultSendDelay
	}
	if deps.Sleep == nil {
		deps.Sleep = sleepCtx
	}
	return &Dispatcher{deps: deps}
}

// CreateJob validates and persists a new pending job.
func (d *Dispatcher) CreateJob(ctx context.Context, userID, title string, recipients []Recipient, template, platform string) (Job, error) {
	if strings.TrimSpace(userID) == "" {
		return Job{}, fmt.Errorf("batch job user id required")
	}
	if len(recipients) == 0 {
		return Job{}, fmt.Errorf("batch job requires at least one recipient")
	}
	if strings.TrimSpace(template) == "" {
		return Job{}, fmt.Errorf("batch job message template required")
	}
	now := d.deps.NowMs()
	job := Job{
		ID:          xid.New().String(),
		UserID:      userID,
		Title:       strings.TrimSpace(title),
		Recipients:  recipients,
		Template:    template,
		Platform:    platform,
		Status:      StatusPending,
		Progress:    Progress{Total: len(recipients)},
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}
	if err := d.deps.Jobs.Put(ctx, job); err != nil {
		return Job{}, fmt.Errorf("persist batch job: %w", err)
	}
	return job, nil
}

// Progress returns the current counters for a job.
func (d *Dispatcher) Progress(ctx context.Context, id string) (Progress, Status, error) {
	job, found, err := d.deps.Jobs.Get(ctx, id)
	if err != nil {
		return Progress{}, "", err
	}
	if !found {
		return Progress{}, "", fmt.Errorf("unknown batch job id: %s", id)
	}
	return job.Progress, job.Status, nil
}

// Run sends the job's message to each recipient in list order, one at a
// time, persisting progress after every attempt. Individual send failures
// count as failed and never abort the loop.
//
// Progress is durable after every step, so Run resumes from the recorded
// offset instead of restarting: recipients already attempted are skipped on
// a re-run after interruption.
func (d *Dispatcher) Run(ctx context.Context, id string) (Job, error) {
	stored, found, err := d.deps.Jobs.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if !found {
		return Job{}, fmt.Errorf("unknown batch job id: %s", id)
	}
	job := *stored
	if job.Status == StatusCompleted {
		return job, nil
	}

	log := d.deps.Log.With().Str("job_id", job.ID).Str("platform", job.Platform).Logger()
	offset := job.Progress.Sent + job.Progress.Failed
	if offset > 0 {
		log.Info().Int("offset", offset).Msg("Resuming batch job from recorded progress")
	} else {
		log.Info().Int("recipients", len(job.Recipients)).Msg("Batch job starting")
	}
	job.Status = StatusInProgress

	for i := offset; i < len(job.Recipients); i++ {
		if i > offset {
			if err := d.deps.Sleep(ctx, d.deps.SendDelay); err != nil {
				// Cancelled between recipients: progress is already durable,
				// the job stays in_progress and resumes later.
				return job, fmt.Errorf("batch job interrupted at recipient %d: %w", i, err)
			}
		}
		recipient := job.Recipients[i]
		message := RenderTemplate(job.Template, recipient)
		sendErr := d.deps.Sender.Perform(ctx, trigger.Action{
			Kind:     trigger.ActionSendMessage,
			Target:   recipient.Identifier,
			Content:  message,
			Platform: job.Platform,
		})
		if sendErr != nil {
			job.Progress.Failed++
			log.Warn().Err(sendErr).Str("recipient", recipient.Identifier).Msg("Batch send failed")
		} else {
			job.Progress.Sent++
		}
		if job.Progress.Sent+job.Progress.Failed >= job.Progress.Total {
			job.Status = StatusCompleted
		}
		job.UpdatedAtMs = d.deps.NowMs()
		if err := d.putJob(ctx, job); err != nil {
			log.Error().Err(err).Msg("Failed to persist batch progress")
		}
		d.deps.Events.Publish(eventstream.Event{
			Type:   eventstream.TypeBatchProgress,
			AtMs:   job.UpdatedAtMs,
			UserID: job.UserID,
			JobID:  job.ID,
			Status: string(job.Status),
			Sent:   job.Progress.Sent,
			Failed: job.Progress.Failed,
			Total:  job.Progress.Total,
		})
	}

	d.deps.Events.Publish(eventstream.Event{
		Type:   eventstream.TypeBatchFinished,
		AtMs:   d.deps.NowMs(),
		UserID: job.UserID,
		JobID:  job.ID,
		Status: string(job.Status),
		Sent:   job.Progress.Sent,
		Failed: job.Progress.Failed,
		Total:  job.Progress.Total,
	})
	log.Info().Int("sent", job.Progress.Sent).Int("failed", job.Progress.Failed).
		Msg("Batch job finished")
	return job, nil
}

// RenderTemplate substitutes the {name} placeholder with the recipient's
// name.
func RenderTemplate(template string, recipient Recipient) string {
	return strings.ReplaceAll(template, "{name}", recipient.Name)
}

// putJob persists under a detached context so cancellation between steps
// cannot lose already-counted progress.
func (d *Dispatcher) putJob(ctx context.Context, job Job) error {
	putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return d.deps.Jobs.Put(putCtx, job)
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
