package trigger

// Kind classifies what a trigger automates.
type Kind string

const (
	KindTime              Kind = "time"
	KindPurpose           Kind = "purpose"
	KindBatchTask         Kind = "batch-task"
	KindFollowUp          Kind = "follow-up"
	KindCalendarAutopilot Kind = "calendar-autopilot"
	KindReminderChain     Kind = "reminder-chain"
)

// Category is an informational domain tag. It never affects scheduling.
type Category string

const (
	CategoryFitness    Category = "fitness"
	CategoryStudy      Category = "study"
	CategoryFinance    Category = "finance"
	CategorySocial     Category = "social"
	CategoryReflection Category = "reflection"
	CategoryRoutine    Category = "routine"
	CategoryNetworking Category = "networking"
	CategoryOutreach   Category = "outreach"
	CategoryWellness   Category = "wellness"
)

// Autonomy is a per-trigger ceiling on how independently the engine may act.
type Autonomy string

const (
	// AutonomyConfirm only executes after explicit user confirmation.
	AutonomyConfirm Autonomy = "A"
	// AutonomyNotify executes and notifies the user.
	AutonomyNotify Autonomy = "B"
	// AutonomySilent executes silently and reports afterwards.
	AutonomySilent Autonomy = "C"
)

// ExecutionMode is the resolved behavior for a single firing.
type ExecutionMode string

const (
	ModeRingAskExecute      ExecutionMode = "ring-ask-execute"
	ModeRingExecute         ExecutionMode = "ring-execute"
	ModeSilentExecute       ExecutionMode = "silent-execute"
	ModeSilentExecuteReport ExecutionMode = "silent-execute-report"
	ModeSuppress            ExecutionMode = "suppress"
	ModeDelay               ExecutionMode = "delay"
)

// ActionKind identifies the actuator capability an action needs.
type ActionKind string

const (
	ActionSendMessage     ActionKind = "send-message"
	ActionSendEmail       ActionKind = "send-email"
	ActionCalendarEvent   ActionKind = "calendar-event"
	ActionOpenApp         ActionKind = "open-app"
	ActionPlayMusic       ActionKind = "play-music"
	ActionStartWorkflow   ActionKind = "start-workflow"
	ActionCreateNote      ActionKind = "create-note"
	ActionTriggerReminder ActionKind = "trigger-reminder"
)

// Action is one step of a trigger's firing. Payload fields are
// kind-dependent; Metadata is passed through to the actuator untouched.
type Action struct {
	Kind         ActionKind        `json:"kind"`
	Target       string            `json:"target,omitempty"`
	Content      string            `json:"content,omitempty"`
	Platform     string            `json:"platform,omitempty"`
	AppID        string            `json:"appId,omitempty"`
	WorkflowType string            `json:"workflowType,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// RepeatPattern defines when a trigger fires again.
type RepeatPattern struct {
	Kind    string `json:"kind"` // at | every | cron
	EveryMs int64  `json:"everyMs,omitempty"`
	Expr    string `json:"expr,omitempty"`
	TZ      string `json:"tz,omitempty"`
}

// Conditions gate and shape a firing against the user's context.
type Conditions struct {
	MinMood          *float64 `json:"minMood,omitempty"`
	MaxMood          *float64 `json:"maxMood,omitempty"`
	MinEnergy        *float64 `json:"minEnergy,omitempty"`
	MaxEnergy        *float64 `json:"maxEnergy,omitempty"`
	BurnoutThreshold *float64 `json:"burnoutThreshold,omitempty"`
	// AllowedDays lists weekday indices (0=Sunday) the trigger may fire on.
	// Empty means any day.
	AllowedDays       []int `json:"allowedDays,omitempty"`
	RespectQuietHours bool  `json:"quietHoursRespect,omitempty"`
	RequiresApproval  bool  `json:"requiresApproval,omitempty"`
}

// Trigger is a user-configured rule pairing a schedule and condition set
// with an ordered list of actions.
type Trigger struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	Kind     Kind     `json:"kind"`
	Category Category `json:"category,omitempty"`

	ScheduledAtMs int64          `json:"scheduledAtMs"`
	Repeat        *RepeatPattern `json:"repeat,omitempty"`
	Active        bool           `json:"active"`

	DeclaredMode ExecutionMode `json:"declaredMode"`
	Autonomy     Autonomy      `json:"autonomy"`
	Priority     int           `json:"priority"`
	Urgency      int           `json:"urgency"`

	Actions    []Action   `json:"actions"`
	Conditions Conditions `json:"conditions"`

	LastTriggeredAtMs *int64 `json:"lastTriggeredAtMs,omitempty"`
	NextTriggerAtMs   *int64 `json:"nextTriggerAtMs,omitempty"`

	CreatedAtMs int64 `json:"createdAtMs"`
	UpdatedAtMs int64 `json:"updatedAtMs"`
}

// Create is input for creating triggers.
type Create struct {
	UserID      string `json:"userId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	Kind     Kind     `json:"kind"`
	Category Category `json:"category,omitempty"`

	ScheduledAtMs int64          `json:"scheduledAtMs"`
	Repeat        *RepeatPattern `json:"repeat,omitempty"`
	Active        *bool          `json:"active,omitempty"`

	DeclaredMode ExecutionMode `json:"declaredMode,omitempty"`
	Autonomy     Autonomy      `json:"autonomy,omitempty"`
	Priority     int           `json:"priority"`
	Urgency      int           `json:"urgency"`

	Actions    []Action   `json:"actions"`
	Conditions Conditions `json:"conditions"`
}

// Patch defines partial updates.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`

	Kind     *Kind     `json:"kind,omitempty"`
	Category *Category `json:"category,omitempty"`

	ScheduledAtMs *int64         `json:"scheduledAtMs,omitempty"`
	Repeat        *RepeatPattern `json:"repeat,omitempty"`
	Active        *bool          `json:"active,omitempty"`

	DeclaredMode *ExecutionMode `json:"declaredMode,omitempty"`
	Autonomy     *Autonomy      `json:"autonomy,omitempty"`
	Priority     *int           `json:"priority,omitempty"`
	Urgency      *int           `json:"urgency,omitempty"`

	Actions    []Action    `json:"actions,omitempty"`
	Conditions *Conditions `json:"conditions,omitempty"`
}
