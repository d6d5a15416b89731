package usercontext

import "context"

// Level is a coarse categorical signal value.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Snapshot holds the latest known behavioral and emotional signals for one
// user. It is a dumb signal cache: freshness is the writer's problem.
type Snapshot struct {
	UserID string `json:"userId"`

	Mood       Level   `json:"currentMood,omitempty"`
	Energy     Level   `json:"currentEnergy,omitempty"`
	Motivation float64 `json:"motivationLevel"`
	Burnout    float64 `json:"burnoutScore"`
	Stress     float64 `json:"stressLevel"`

	Working      bool `json:"isWorking"`
	Studying     bool `json:"isStudying"`
	Exercising   bool `json:"isExercising"`
	FocusSession bool `json:"activeFocusSession"`
	QuietHours   bool `json:"quietHoursActive"`

	UpdatedAtMs int64 `json:"updatedAtMs"`
}

// Patch is a partial snapshot update. Nil fields are left untouched, so any
// collaborator can report the one signal it observed.
type Patch struct {
	Mood       *Level   `json:"currentMood,omitempty"`
	Energy     *Level   `json:"currentEnergy,omitempty"`
	Motivation *float64 `json:"motivationLevel,omitempty"`
	Burnout    *float64 `json:"burnoutScore,omitempty"`
	Stress     *float64 `json:"stressLevel,omitempty"`

	Working      *bool `json:"isWorking,omitempty"`
	Studying     *bool `json:"isStudying,omitempty"`
	Exercising   *bool `json:"isExercising,omitempty"`
	FocusSession *bool `json:"activeFocusSession,omitempty"`
	QuietHours   *bool `json:"quietHoursActive,omitempty"`
}

// Merge applies the patch to snap, last write wins per field.
func Merge(snap *Snapshot, patch Patch) {
	if patch.Mood != nil {
		snap.Mood = *patch.Mood
	}
	if patch.Energy != nil {
		snap.Energy = *patch.Energy
	}
	if patch.Motivation != nil {
		snap.Motivation = *patch.Motivation
	}
	if patch.Burnout != nil {
		snap.Burnout = *patch.Burnout
	}
	if patch.Stress != nil {
		snap.Stress = *patch.Stress
	}
	if patch.Working != nil {
		snap.Working = *patch.Working
	}
	if patch.Studying != nil {
		snap.Studying = *patch.Studying
	}
	if patch.Exercising != nil {
		snap.Exercising = *patch.Exercising
	}
	if patch.FocusSession != nil {
		snap.FocusSession = *patch.FocusSession
	}
	if patch.QuietHours != nil {
		snap.QuietHours = *patch.QuietHours
	}
}

// Reader is the read side consumed by policy evaluation.
type Reader interface {
	Read(ctx context.Context, userID string) (*Snapshot, error)
}
