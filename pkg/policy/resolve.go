// Package policy resolves how loudly (or whether) a trigger firing may
// proceed, given the user's current context.
package policy

import (
	"github.com/solacehq/pulse/pkg/trigger"
	"github.com/solacehq/pulse/pkg/usercontext"
)

// Priorities at or above these values punch through the matching override.
const (
	lowEnergyPriorityFloor = 7
	focusPriorityFloor     = 9
)

// Resolve maps a trigger and context snapshot to an execution mode. It is a
// pure function: same inputs, same answer.
//
// The rules are an ordered list and first match wins. The order is product
// behavior, not an implementation detail: burnout protection must override
// quiet hours, quiet hours must override energy, and so on. Reordering
// silently changes what a stressed user experiences.
func Resolve(trig trigger.Trigger, snap *usercontext.Snapshot) trigger.ExecutionMode {
	return clamp(trig, resolve(trig, snap))
}

func resolve(trig trigger.Trigger, snap *usercontext.Snapshot) trigger.ExecutionMode {
	if snap == nil {
		// Fail closed: without context we never execute silently.
		return trigger.ModeRingAskExecute
	}
	cond := trig.Conditions

	if cond.BurnoutThreshold != nil && snap.Burnout > *cond.BurnoutThreshold {
		return trigger.ModeSuppress
	}
	if cond.RespectQuietHours && snap.QuietHours {
		// Never ring during quiet hours, but still perform and report.
		return trigger.ModeSilentExecuteReport
	}
	if snap.Energy == usercontext.LevelLow {
		if trig.Priority < lowEnergyPriorityFloor {
			return trigger.ModeDelay
		}
		return trigger.ModeRingAskExecute
	}
	if snap.FocusSession && trig.Priority < focusPriorityFloor {
		return trigger.ModeSilentExecuteReport
	}
	if !trigger.KnownMode(trig.DeclaredMode) {
		return trigger.ModeRingAskExecute
	}
	return trig.DeclaredMode
}

// clamp enforces the trigger's autonomy ceiling after rule resolution. A
// confirmation-only trigger (autonomy A, or requiresApproval) may still be
// suppressed or delayed, but any mode that would execute without explicit
// confirmation collapses to ring-ask-execute.
func clamp(trig trigger.Trigger, mode trigger.ExecutionMode) trigger.ExecutionMode {
	if trig.Autonomy != trigger.AutonomyConfirm && !trig.Conditions.RequiresApproval {
		return mode
	}
	switch mode {
	case trigger.ModeRingExecute, trigger.ModeSilentExecute, trigger.ModeSilentExecuteReport:
		return trigger.ModeRingAskExecute
	default:
		return mode
	}
}

// Executes reports whether mode results in the pipeline running.
func Executes(mode trigger.ExecutionMode) bool {
	switch mode {
	case trigger.ModeSuppress, trigger.ModeDelay:
		return false
	default:
		return true
	}
}
