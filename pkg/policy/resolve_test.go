package policy

import (
	"testing"

	"github.com/solacehq/pulse/pkg/trigger"
	"github.com/solacehq/pulse/pkg/usercontext"
)

func f64(v float64) *float64 { return &v }

func baseTrigger() trigger.Trigger {
	return trigger.Trigger{
		ID:           "trig-1",
		UserID:       "user-1",
		DeclaredMode: trigger.ModeSilentExecute,
		Autonomy:     trigger.AutonomyNotify,
		Priority:     5,
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	trig := baseTrigger()
	trig.Conditions.BurnoutThreshold = f64(0.5)
	snap := &usercontext.Snapshot{Energy: usercontext.LevelLow, Burnout: 0.2}
	first := Resolve(trig, snap)
	second := Resolve(trig, snap)
	if first != second {
		t.Fatalf("expected deterministic resolution, got %s then %s", first, second)
	}
}

func TestBurnoutSuppressionDominates(t *testing.T) {
	trig := baseTrigger()
	trig.Priority = 10
	trig.Conditions.BurnoutThreshold = f64(5)
	trig.Conditions.RespectQuietHours = true
	// Every other override present: suppress must still win.
	snap := &usercontext.Snapshot{
		Burnout:      8,
		QuietHours:   true,
		Energy:       usercontext.LevelLow,
		FocusSession: true,
	}
	if mode := Resolve(trig, snap); mode != trigger.ModeSuppress {
		t.Fatalf("expected suppress, got %s", mode)
	}
}

func TestQuietHoursBeforeEnergy(t *testing.T) {
	trig := baseTrigger()
	trig.Conditions.RespectQuietHours = true
	snap := &usercontext.Snapshot{QuietHours: true, Energy: usercontext.LevelLow}
	if mode := Resolve(trig, snap); mode != trigger.ModeSilentExecuteReport {
		t.Fatalf("expected silent-execute-report, got %s", mode)
	}
}

func TestQuietHoursIgnoredWhenNotRespected(t *testing.T) {
	trig := baseTrigger()
	snap := &usercontext.Snapshot{QuietHours: true}
	if mode := Resolve(trig, snap); mode != trigger.ModeSilentExecute {
		t.Fatalf("expected declared mode, got %s", mode)
	}
}

func TestLowEnergyDelaysLowPriority(t *testing.T) {
	// Priority 5 < 7 with low energy and no burnout or quiet-hours override.
	trig := baseTrigger()
	trig.Conditions.BurnoutThreshold = f64(6)
	snap := &usercontext.Snapshot{Burnout: 0.3, Energy: usercontext.LevelLow}
	if mode := Resolve(trig, snap); mode != trigger.ModeDelay {
		t.Fatalf("expected delay, got %s", mode)
	}
}

func TestLowEnergyHighPriorityAsks(t *testing.T) {
	trig := baseTrigger()
	trig.Priority = 7
	snap := &usercontext.Snapshot{Energy: usercontext.LevelLow}
	if mode := Resolve(trig, snap); mode != trigger.ModeRingAskExecute {
		t.Fatalf("expected ring-ask-execute, got %s", mode)
	}
}

func TestFocusSessionSilencesBelowPriorityNine(t *testing.T) {
	trig := baseTrigger()
	trig.Priority = 8
	snap := &usercontext.Snapshot{FocusSession: true, Energy: usercontext.LevelHigh}
	if mode := Resolve(trig, snap); mode != trigger.ModeSilentExecuteReport {
		t.Fatalf("expected silent-execute-report, got %s", mode)
	}
}

func TestFocusSessionBoundaryAtNine(t *testing.T) {
	// Priority 9 punches through the focus override to the declared mode.
	trig := baseTrigger()
	trig.Priority = 9
	trig.DeclaredMode = trigger.ModeRingExecute
	snap := &usercontext.Snapshot{FocusSession: true, Energy: usercontext.LevelHigh}
	if mode := Resolve(trig, snap); mode != trigger.ModeRingExecute {
		t.Fatalf("expected declared ring-execute, got %s", mode)
	}
}

func TestAutonomyClampNeverExecutesUnconfirmed(t *testing.T) {
	silent := []trigger.ExecutionMode{
		trigger.ModeRingExecute, trigger.ModeSilentExecute, trigger.ModeSilentExecuteReport,
	}
	for _, declared := range silent {
		trig := baseTrigger()
		trig.Autonomy = trigger.AutonomyConfirm
		trig.DeclaredMode = declared
		snap := &usercontext.Snapshot{Energy: usercontext.LevelHigh}
		if mode := Resolve(trig, snap); mode != trigger.ModeRingAskExecute {
			t.Fatalf("declared %s: expected clamp to ring-ask-execute, got %s", declared, mode)
		}
	}
}

func TestAutonomyClampPreservesSuppress(t *testing.T) {
	trig := baseTrigger()
	trig.Autonomy = trigger.AutonomyConfirm
	trig.Conditions.BurnoutThreshold = f64(0.5)
	snap := &usercontext.Snapshot{Burnout: 0.9}
	if mode := Resolve(trig, snap); mode != trigger.ModeSuppress {
		t.Fatalf("expected suppress to survive the clamp, got %s", mode)
	}
}

func TestAutonomyClampAppliedAfterQuietHours(t *testing.T) {
	// Quiet hours resolves silent-execute-report, then the clamp lowers it.
	trig := baseTrigger()
	trig.Autonomy = trigger.AutonomyConfirm
	trig.Conditions.RespectQuietHours = true
	snap := &usercontext.Snapshot{QuietHours: true}
	if mode := Resolve(trig, snap); mode != trigger.ModeRingAskExecute {
		t.Fatalf("expected ring-ask-execute, got %s", mode)
	}
}

func TestRequiresApprovalClampsLikeAutonomyA(t *testing.T) {
	trig := baseTrigger()
	trig.Conditions.RequiresApproval = true
	snap := &usercontext.Snapshot{Energy: usercontext.LevelHigh}
	if mode := Resolve(trig, snap); mode != trigger.ModeRingAskExecute {
		t.Fatalf("expected ring-ask-execute, got %s", mode)
	}
}

func TestMissingSnapshotFailsClosed(t *testing.T) {
	trig := baseTrigger()
	trig.DeclaredMode = trigger.ModeSilentExecute
	if mode := Resolve(trig, nil); mode != trigger.ModeRingAskExecute {
		t.Fatalf("expected fail-closed ring-ask-execute, got %s", mode)
	}
}

func TestMalformedDeclaredModeFailsClosed(t *testing.T) {
	trig := baseTrigger()
	trig.DeclaredMode = "whisper"
	snap := &usercontext.Snapshot{Energy: usercontext.LevelHigh}
	if mode := Resolve(trig, snap); mode != trigger.ModeRingAskExecute {
		t.Fatalf("expected fail-closed ring-ask-execute, got %s", mode)
	}
}

func TestBurnoutThresholdUnsetNeverSuppresses(t *testing.T) {
	trig := baseTrigger()
	snap := &usercontext.Snapshot{Burnout: 1.0, Energy: usercontext.LevelHigh}
	if mode := Resolve(trig, snap); mode == trigger.ModeSuppress {
		t.Fatal("expected no suppression without a configured threshold")
	}
}

func TestExecutes(t *testing.T) {
	if Executes(trigger.ModeSuppress) || Executes(trigger.ModeDelay) {
		t.Fatal("suppress and delay must not execute")
	}
	if !Executes(trigger.ModeSilentExecute) || !Executes(trigger.ModeRingAskExecute) {
		t.Fatal("execute modes must execute")
	}
}
