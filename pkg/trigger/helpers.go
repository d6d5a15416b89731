package trigger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// New validates input and builds a trigger ready for scheduling.
func New(nowMs int64, input Create) (Trigger, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Trigger{}, fmt.Errorf("trigger title required")
	}
	if strings.TrimSpace(input.UserID) == "" {
		return Trigger{}, fmt.Errorf("trigger user id required")
	}
	if err := validateKind(input.Kind); err != nil {
		return Trigger{}, err
	}
	if err := validateActions(input.Actions); err != nil {
		return Trigger{}, err
	}
	if err := validateConditions(input.Conditions); err != nil {
		return Trigger{}, err
	}
	if err := validateRepeat(input.Repeat); err != nil {
		return Trigger{}, err
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}
	declared := input.DeclaredMode
	if declared == "" {
		declared = ModeRingAskExecute
	}
	if !KnownMode(declared) {
		return Trigger{}, fmt.Errorf("unknown execution mode: %q", declared)
	}
	autonomy := input.Autonomy
	if autonomy == "" {
		autonomy = AutonomyNotify
	}
	if autonomy != AutonomyConfirm && autonomy != AutonomyNotify && autonomy != AutonomySilent {
		return Trigger{}, fmt.Errorf("unknown autonomy level: %q", autonomy)
	}

	trig := Trigger{
		ID:            uuid.NewString(),
		UserID:        input.UserID,
		Title:         title,
		Description:   strings.TrimSpace(input.Description),
		Kind:          input.Kind,
		Category:      input.Category,
		ScheduledAtMs: input.ScheduledAtMs,
		Repeat:        input.Repeat,
		Active:        active,
		DeclaredMode:  declared,
		Autonomy:      autonomy,
		Priority:      clampScale(input.Priority),
		Urgency:       clampScale(input.Urgency),
		Actions:       input.Actions,
		Conditions:    input.Conditions,
		CreatedAtMs:   nowMs,
		UpdatedAtMs:   nowMs,
	}
	trig.NextTriggerAtMs = ComputeNextFireAtMs(trig, nowMs)
	return trig, nil
}

// ApplyPatch merges a partial update into trig and revalidates it.
func ApplyPatch(trig *Trigger, patch Patch) error {
	if trig == nil {
		return fmt.Errorf("trigger required")
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return fmt.Errorf("trigger title required")
		}
		trig.Title = title
	}
	if patch.Description != nil {
		trig.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Kind != nil {
		if err := validateKind(*patch.Kind); err != nil {
			return err
		}
		trig.Kind = *patch.Kind
	}
	if patch.Category != nil {
		trig.Category = *patch.Category
	}
	if patch.ScheduledAtMs != nil {
		trig.ScheduledAtMs = *patch.ScheduledAtMs
	}
	if patch.Repeat != nil {
		if err := validateRepeat(patch.Repeat); err != nil {
			return err
		}
		trig.Repeat = patch.Repeat
	}
	if patch.Active != nil {
		trig.Active = *patch.Active
	}
	if patch.DeclaredMode != nil {
		if !KnownMode(*patch.DeclaredMode) {
			return fmt.Errorf("unknown execution mode: %q", *patch.DeclaredMode)
		}
		trig.DeclaredMode = *patch.DeclaredMode
	}
	if patch.Autonomy != nil {
		switch *patch.Autonomy {
		case AutonomyConfirm, AutonomyNotify, AutonomySilent:
			trig.Autonomy = *patch.Autonomy
		default:
			return fmt.Errorf("unknown autonomy level: %q", *patch.Autonomy)
		}
	}
	if patch.Priority != nil {
		trig.Priority = clampScale(*patch.Priority)
	}
	if patch.Urgency != nil {
		trig.Urgency = clampScale(*patch.Urgency)
	}
	if patch.Actions != nil {
		if err := validateActions(patch.Actions); err != nil {
			return err
		}
		trig.Actions = patch.Actions
	}
	if patch.Conditions != nil {
		if err := validateConditions(*patch.Conditions); err != nil {
			return err
		}
		trig.Conditions = *patch.Conditions
	}
	if trig.Active {
		if err := validateActions(trig.Actions); err != nil {
			return err
		}
	}
	return nil
}

func clampScale(v int) int {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
