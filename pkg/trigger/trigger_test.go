package trigger

import (
	"testing"
	"time"
)

const nowMs = int64(1700000000000)

func validCreate() Create {
	return Create{
		UserID:        "user-1",
		Title:         "Morning stretch",
		Kind:          KindTime,
		Category:      CategoryFitness,
		ScheduledAtMs: nowMs + 60_000,
		Actions: []Action{
			{Kind: ActionSendMessage, Target: "self", Content: "stretch time"},
		},
	}
}

func TestNewRejectsEmptyActions(t *testing.T) {
	input := validCreate()
	input.Actions = nil
	if _, err := New(nowMs, input); err == nil {
		t.Fatal("expected error for trigger without actions")
	}
}

func TestNewRejectsUnknownActionKind(t *testing.T) {
	input := validCreate()
	input.Actions = []Action{{Kind: "teleport"}}
	if _, err := New(nowMs, input); err == nil {
		t.Fatal("expected error for unknown action kind")
	}
}

func TestNewRejectsUnknownKind(t *testing.T) {
	input := validCreate()
	input.Kind = "psychic"
	if _, err := New(nowMs, input); err == nil {
		t.Fatal("expected error for unknown trigger kind")
	}
}

func TestNewRejectsMalformedConditions(t *testing.T) {
	input := validCreate()
	input.Conditions = Conditions{AllowedDays: []int{7}}
	if _, err := New(nowMs, input); err == nil {
		t.Fatal("expected error for out-of-range weekday")
	}
	input.Conditions = Conditions{MinMood: f64(0.8), MaxMood: f64(0.2)}
	if _, err := New(nowMs, input); err == nil {
		t.Fatal("expected error for inverted mood bounds")
	}
}

func TestNewRejectsBadRepeat(t *testing.T) {
	input := validCreate()
	input.Repeat = &RepeatPattern{Kind: "every"}
	if _, err := New(nowMs, input); err == nil {
		t.Fatal("expected error for non-positive everyMs")
	}
	input.Repeat = &RepeatPattern{Kind: "cron", Expr: "not a cron"}
	if _, err := New(nowMs, input); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestNewDefaultsAndNextFire(t *testing.T) {
	trig, err := New(nowMs, validCreate())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !trig.Active {
		t.Fatal("expected trigger active by default")
	}
	if trig.DeclaredMode != ModeRingAskExecute {
		t.Fatalf("expected default declared mode, got %s", trig.DeclaredMode)
	}
	if trig.Autonomy != AutonomyNotify {
		t.Fatalf("expected default autonomy B, got %s", trig.Autonomy)
	}
	if trig.NextTriggerAtMs == nil || *trig.NextTriggerAtMs != nowMs+60_000 {
		t.Fatalf("expected next fire at scheduled time, got %v", trig.NextTriggerAtMs)
	}
	if trig.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestNewClampsPriorityScale(t *testing.T) {
	input := validCreate()
	input.Priority = 15
	input.Urgency = -3
	trig, err := New(nowMs, input)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if trig.Priority != 10 || trig.Urgency != 0 {
		t.Fatalf("expected clamped scales, got priority=%d urgency=%d", trig.Priority, trig.Urgency)
	}
}

func TestApplyPatchRevalidates(t *testing.T) {
	trig, err := New(nowMs, validCreate())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := ApplyPatch(&trig, Patch{Actions: []Action{}}); err == nil {
		t.Fatal("expected empty actions patch to be rejected on active trigger")
	}
	mode := ModeSilentExecute
	if err := ApplyPatch(&trig, Patch{DeclaredMode: &mode}); err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if trig.DeclaredMode != ModeSilentExecute {
		t.Fatalf("expected patched mode, got %s", trig.DeclaredMode)
	}
}

func TestComputeNextFireAtMsOneShot(t *testing.T) {
	trig := Trigger{ScheduledAtMs: nowMs + 5000}
	next := ComputeNextFireAtMs(trig, nowMs)
	if next == nil || *next != nowMs+5000 {
		t.Fatalf("expected scheduled time, got %v", next)
	}

	fired := nowMs
	trig.LastTriggeredAtMs = &fired
	if next := ComputeNextFireAtMs(trig, nowMs); next != nil {
		t.Fatalf("expected one-shot to be exhausted after firing, got %d", *next)
	}
}

func TestComputeNextFireAtMsAtKindIsOneShot(t *testing.T) {
	fired := nowMs
	trig := Trigger{
		ScheduledAtMs:     nowMs - 5000,
		LastTriggeredAtMs: &fired,
		Repeat:            &RepeatPattern{Kind: "at"},
	}
	if next := ComputeNextFireAtMs(trig, nowMs); next != nil {
		t.Fatalf("expected explicit one-shot to be exhausted, got %d", *next)
	}
}

func TestComputeNextFireAtMsEvery(t *testing.T) {
	fired := nowMs
	trig := Trigger{
		ScheduledAtMs:     nowMs - 90_000,
		LastTriggeredAtMs: &fired,
		Repeat:            &RepeatPattern{Kind: "every", EveryMs: 60_000},
	}
	next := ComputeNextFireAtMs(trig, nowMs)
	if next == nil {
		t.Fatal("expected a next fire time")
	}
	// Anchored stepping: next boundary after now is anchor + 2*60s.
	if want := trig.ScheduledAtMs + 2*60_000; *next != want {
		t.Fatalf("expected %d, got %d", want, *next)
	}
}

func TestComputeNextFireAtMsCron(t *testing.T) {
	fired := nowMs
	trig := Trigger{
		LastTriggeredAtMs: &fired,
		Repeat:            &RepeatPattern{Kind: "cron", Expr: "0 9 * * *", TZ: "UTC"},
	}
	next := ComputeNextFireAtMs(trig, nowMs)
	if next == nil {
		t.Fatal("expected a next fire time")
	}
	at := time.UnixMilli(*next).UTC()
	if at.Hour() != 9 || at.Minute() != 0 {
		t.Fatalf("expected 09:00 UTC, got %s", at)
	}
	if *next <= nowMs {
		t.Fatal("expected next fire in the future")
	}
}

func TestAllowedOnDay(t *testing.T) {
	// nowMs is a Tuesday (2023-11-14 UTC).
	trig := Trigger{Conditions: Conditions{AllowedDays: []int{2}}}
	if !AllowedOnDay(trig, nowMs) {
		t.Fatal("expected Tuesday to be allowed")
	}
	trig.Conditions.AllowedDays = []int{0, 6}
	if AllowedOnDay(trig, nowMs) {
		t.Fatal("expected Tuesday to be disallowed")
	}
	trig.Conditions.AllowedDays = nil
	if !AllowedOnDay(trig, nowMs) {
		t.Fatal("expected empty allow list to permit every day")
	}
}

func f64(v float64) *float64 { return &v }
