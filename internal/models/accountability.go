package models

import "time"

// AccountabilityFlag types
const (
	FlagTypeNoCommits  = "no_commits"
	FlagTypeSprintRisk = "sprint_risk"
)

// AccountabilityFlag statuses
const (
	FlagStatusActive   = "active"
	FlagStatusResolved = "resolved"
)

// Flag severities
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// AccountabilityFlag is a persisted warning about a member or ticket.
// At most one active flag exists per (member, type, subject); the subject
// (e.g. the ticket key) is embedded in Metadata.
type AccountabilityFlag struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	TeamMemberID uint       `gorm:"index;not null" json:"team_member_id"`
	FlagType     string     `gorm:"size:50;index;not null" json:"flag_type"`
	Severity     string     `gorm:"size:20;default:medium" json:"severity"`
	Message      string     `gorm:"type:text" json:"message"`
	Metadata     string     `gorm:"type:text" json:"metadata"` // JSON, carries the subject identifier
	Status       string     `gorm:"size:20;index;default:active" json:"status"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at"`
}

// StatusTransition is an append-only history record per ticket key.
// A record is appended only when the observed status differs from the
// most recent recorded one.
type StatusTransition struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JiraKey   string    `gorm:"index;size:50;not null" json:"jira_key"`
	OldStatus *string   `gorm:"size:50" json:"old_status"`
	NewStatus string    `gorm:"size:50;not null" json:"new_status"`
	ChangedAt time.Time `gorm:"index" json:"changed_at"`
}

// EngineerPattern is a per-member, per-week activity rollup. Upserted
// keyed by (team_member_id, week_start); week start is the most recent
// Sunday at local midnight.
type EngineerPattern struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	TeamMemberID      uint      `gorm:"uniqueIndex:idx_member_week;not null" json:"team_member_id"`
	WeekStart         time.Time `gorm:"uniqueIndex:idx_member_week;not null" json:"week_start"`
	TicketsCompleted  int       `json:"tickets_completed"`
	TicketsStarted    int       `json:"tickets_started"`
	CommitsCount      int       `json:"commits_count"`
	PRsMerged         int       `json:"prs_merged"`
	AvgCycleTimeHours *float64  `json:"avg_cycle_time_hours"`
	AIAnalysis        string    `gorm:"type:text" json:"ai_analysis"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (AccountabilityFlag) TableName() string { return "accountability_flags" }
func (StatusTransition) TableName() string   { return "status_transitions" }
func (EngineerPattern) TableName() string    { return "engineer_patterns" }
