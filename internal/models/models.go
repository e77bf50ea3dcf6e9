package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an operator account
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password  string         `gorm:"size:255" json:"-"` // bcrypt hash
	Email     string         `gorm:"size:255" json:"email"`
	Nickname  string         `gorm:"size:100" json:"nickname"`
	Role      string         `gorm:"size:50;default:user" json:"role"` // admin, user
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	LastLogin *time.Time     `json:"last_login"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TeamMember represents an engineer tracked by the automation checks.
// Members are synced from the issue tracker and source-control integrations;
// they are distinct from operator accounts.
type TeamMember struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:200;not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;size:255" json:"email"`
	Role      string         `gorm:"size:100" json:"role"`     // backend, frontend, fullstack, ...
	Skills    string         `gorm:"size:1000" json:"skills"`  // comma-separated: go,react,postgres
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Ticket status values. "in_progress" is the active-work state the
// accountability check watches.
const (
	TicketStatusBacklog    = "backlog"
	TicketStatusTodo       = "todo"
	TicketStatusInProgress = "in_progress"
	TicketStatusInReview   = "in_review"
	TicketStatusDone       = "done"
)

// Ticket represents a work item, optionally linked to an external tracker
// via JiraKey.
type Ticket struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	JiraKey     string         `gorm:"index;size:50" json:"jira_key"` // external tracker key, e.g. TP-123
	Title       string         `gorm:"size:500;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Status      string         `gorm:"size:50;index;default:backlog" json:"status"`
	AssigneeID  *uint          `gorm:"index" json:"assignee_id"`
	Assignee    *TeamMember    `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Epic        string         `gorm:"size:200" json:"epic"`
	StoryPoints int            `json:"story_points"`
	StartedAt   *time.Time     `json:"started_at"`   // first transition into in_progress
	CompletedAt *time.Time     `json:"completed_at"` // transition into done
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Commit represents an imported source-control commit attributed to a member.
type Commit struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	SHA          string     `gorm:"uniqueIndex;size:100;not null" json:"sha"`
	TeamMemberID *uint      `gorm:"index" json:"team_member_id"`
	AuthorEmail  string     `gorm:"size:255" json:"author_email"`
	Message      string     `gorm:"type:text" json:"message"`
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	CommittedAt  time.Time  `gorm:"index" json:"committed_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Pull request states
const (
	PullRequestStateOpen   = "open"
	PullRequestStateMerged = "merged"
	PullRequestStateClosed = "closed"
)

// PullRequest represents an imported pull/merge request.
type PullRequest struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Number       int        `gorm:"index" json:"number"`
	Title        string     `gorm:"size:500" json:"title"`
	TeamMemberID *uint      `gorm:"index" json:"team_member_id"`
	State        string     `gorm:"size:20;index;default:open" json:"state"`
	MergedAt     *time.Time `json:"merged_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IMBot represents an IM notification bot
type IMBot struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Type      string         `gorm:"size:50;not null" json:"type"` // wechat_work, dingtalk, feishu, slack
	Webhook   string         `gorm:"size:500;not null" json:"webhook"`
	Secret    string         `gorm:"size:255" json:"-"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (User) TableName() string        { return "users" }
func (TeamMember) TableName() string  { return "team_members" }
func (Ticket) TableName() string      { return "tickets" }
func (Commit) TableName() string      { return "commits" }
func (PullRequest) TableName() string { return "pull_requests" }
func (IMBot) TableName() string       { return "im_bots" }
