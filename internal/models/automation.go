package models

import "time"

// AutomationRun statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// AutomationAction statuses
const (
	ActionStatusPending  = "pending"
	ActionStatusApproved = "approved"
	ActionStatusRejected = "rejected"
	ActionStatusExpired  = "expired"
	ActionStatusExecuted = "executed"
)

// ResolvedByAuto marks actions approved by the confidence policy rather
// than an operator.
const ResolvedByAuto = "auto"

// AutomationAction types
const (
	ActionTypeAccountabilityFlag = "accountability_flag"
	ActionTypePMAlert            = "pm_alert"
	ActionTypePMSuggestion       = "pm_suggestion"
)

// AutomationConfig is the singleton row holding the operator-editable
// automation settings. It is read once per cycle start; mid-cycle changes
// do not affect the in-flight cycle.
type AutomationConfig struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	Enabled              bool      `gorm:"default:true" json:"enabled"`
	CheckIntervalMinutes int       `gorm:"default:60" json:"check_interval_minutes"`
	AutoApproveThreshold float64   `gorm:"default:0.8" json:"auto_approve_threshold"`
	NotifyOnNewActions   bool      `gorm:"default:true" json:"notify_on_new_actions"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// AutomationRun records one execution of the full check set. Created at
// cycle start, updated exactly once at cycle end, never deleted.
type AutomationRun struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	StartedAt           time.Time  `gorm:"index" json:"started_at"`
	CompletedAt         *time.Time `json:"completed_at"`
	ChecksRun           string     `gorm:"size:1000" json:"checks_run"` // JSON array of check names, in registration order
	ActionsProposed     int        `json:"actions_proposed"`
	ActionsAutoApproved int        `json:"actions_auto_approved"`
	Status              string     `gorm:"size:20;index;default:running" json:"status"`
	Error               string     `gorm:"type:text" json:"error"`
	CreatedAt           time.Time  `json:"created_at"`
}

// AutomationAction is the persisted, judged form of a check's proposed
// action. Status transitions from pending to one of approved, rejected,
// expired or executed; only the engine and the operator API move it.
type AutomationAction struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	RunID       uint           `gorm:"index;not null" json:"run_id"`
	Run         *AutomationRun `gorm:"foreignKey:RunID" json:"run,omitempty"`
	Type        string         `gorm:"size:50;index;not null" json:"type"`
	CheckModule string         `gorm:"size:100;index" json:"check_module"`
	Title       string         `gorm:"size:500;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Confidence  float64        `json:"confidence"`
	Status      string         `gorm:"size:20;index;default:pending" json:"status"`
	Metadata    string         `gorm:"type:text" json:"metadata"` // JSON object keyed by action type
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	ResolvedAt  *time.Time     `json:"resolved_at"`
	ResolvedBy  string         `gorm:"size:100" json:"resolved_by"` // "auto" or operator username
}

func (AutomationConfig) TableName() string { return "automation_configs" }
func (AutomationRun) TableName() string    { return "automation_runs" }
func (AutomationAction) TableName() string { return "automation_actions" }
