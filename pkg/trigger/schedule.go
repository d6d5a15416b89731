package trigger

import (
	"strings"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

func parseCronExpr(expr string) (cronlib.Schedule, error) {
	parser := cronlib.NewParser(cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor)
	return parser.Parse(strings.TrimSpace(expr))
}

// ComputeNextFireAtMs returns the trigger's next fire time in unix ms after
// nowMs, or nil if the trigger has no further firings.
func ComputeNextFireAtMs(trig Trigger, nowMs int64) *int64 {
	// First firing is the configured absolute time.
	if trig.LastTriggeredAtMs == nil && trig.ScheduledAtMs > 0 && trig.ScheduledAtMs > nowMs {
		at := trig.ScheduledAtMs
		return &at
	}
	repeat := trig.Repeat
	if repeat == nil || strings.TrimSpace(repeat.Kind) == "at" {
		if trig.LastTriggeredAtMs != nil {
			// One-shot already fired.
			return nil
		}
		if trig.ScheduledAtMs > 0 {
			at := trig.ScheduledAtMs
			return &at
		}
		return nil
	}
	switch strings.TrimSpace(repeat.Kind) {
	case "every":
		everyMs := repeat.EveryMs
		if everyMs < 1 {
			everyMs = 1
		}
		anchor := trig.ScheduledAtMs
		if anchor <= 0 {
			anchor = nowMs
		}
		if nowMs < anchor {
			return &anchor
		}
		elapsed := nowMs - anchor
		steps := (elapsed + everyMs - 1) / everyMs
		if steps < 1 {
			steps = 1
		}
		next := anchor + steps*everyMs
		return &next
	case "cron":
		sched, err := parseCronExpr(repeat.Expr)
		if err != nil {
			return nil
		}
		location := time.UTC
		if tz := strings.TrimSpace(repeat.TZ); tz != "" {
			if loc, err := time.LoadLocation(tz); err == nil {
				location = loc
			}
		}
		next := sched.Next(time.UnixMilli(nowMs).In(location))
		if next.IsZero() {
			return nil
		}
		nextMs := next.UTC().UnixMilli()
		return &nextMs
	default:
		return nil
	}
}

// AllowedOnDay reports whether the trigger's conditions permit firing on the
// weekday of atMs. An empty allow list permits every day.
func AllowedOnDay(trig Trigger, atMs int64) bool {
	days := trig.Conditions.AllowedDays
	if len(days) == 0 {
		return true
	}
	weekday := int(time.UnixMilli(atMs).UTC().Weekday())
	for _, day := range days {
		if day == weekday {
			return true
		}
	}
	return false
}
