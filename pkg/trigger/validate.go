package trigger

import (
	"fmt"
	"strings"
)

// KnownActionKind reports whether kind maps to an actuator capability.
func KnownActionKind(kind ActionKind) bool {
	switch kind {
	case ActionSendMessage, ActionSendEmail, ActionCalendarEvent, ActionOpenApp,
		ActionPlayMusic, ActionStartWorkflow, ActionCreateNote, ActionTriggerReminder:
		return true
	default:
		return false
	}
}

// KnownMode reports whether mode is a valid execution mode.
func KnownMode(mode ExecutionMode) bool {
	switch mode {
	case ModeRingAskExecute, ModeRingExecute, ModeSilentExecute,
		ModeSilentExecuteReport, ModeSuppress, ModeDelay:
		return true
	default:
		return false
	}
}

func validateKind(kind Kind) error {
	switch kind {
	case KindTime, KindPurpose, KindBatchTask, KindFollowUp,
		KindCalendarAutopilot, KindReminderChain:
		return nil
	default:
		return fmt.Errorf("unknown trigger kind: %q", kind)
	}
}

func validateActions(actions []Action) error {
	if len(actions) == 0 {
		return fmt.Errorf("trigger requires at least one action")
	}
	for i, action := range actions {
		if !KnownActionKind(action.Kind) {
			return fmt.Errorf("action %d: unknown action kind: %q", i, action.Kind)
		}
	}
	return nil
}

func validateConditions(c Conditions) error {
	for name, bound := range map[string]*float64{
		"minMood": c.MinMood, "maxMood": c.MaxMood,
		"minEnergy": c.MinEnergy, "maxEnergy": c.MaxEnergy,
		"burnoutThreshold": c.BurnoutThreshold,
	} {
		if bound != nil && *bound < 0 {
			return fmt.Errorf("conditions.%s must not be negative", name)
		}
	}
	if c.MinMood != nil && c.MaxMood != nil && *c.MinMood > *c.MaxMood {
		return fmt.Errorf("conditions.minMood exceeds maxMood")
	}
	if c.MinEnergy != nil && c.MaxEnergy != nil && *c.MinEnergy > *c.MaxEnergy {
		return fmt.Errorf("conditions.minEnergy exceeds maxEnergy")
	}
	for _, day := range c.AllowedDays {
		if day < 0 || day > 6 {
			return fmt.Errorf("conditions.allowedDays contains invalid weekday %d", day)
		}
	}
	return nil
}

func validateRepeat(repeat *RepeatPattern) error {
	if repeat == nil {
		return nil
	}
	switch strings.TrimSpace(repeat.Kind) {
	case "at":
		// Explicit one-shot, equivalent to no repeat at all.
	case "every":
		if repeat.EveryMs < 1 {
			return fmt.Errorf("repeat.everyMs must be positive")
		}
	case "cron":
		if strings.TrimSpace(repeat.Expr) == "" {
			return fmt.Errorf("repeat.expr required for cron repeats")
		}
		if _, err := parseCronExpr(repeat.Expr); err != nil {
			return fmt.Errorf("invalid repeat.expr: %w", err)
		}
	default:
		return fmt.Errorf("unknown repeat kind: %q", repeat.Kind)
	}
	return nil
}
