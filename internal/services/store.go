package services

import (
	"time"

	"github.com/teampulse-io/teampulse/backend/internal/models"
	"gorm.io/gorm"
)

// TicketFilter narrows ListTickets. Zero values mean "no filter".
type TicketFilter struct {
	Status     string
	AssigneeID *uint
	HasJiraKey bool
}

// Store is the storage port the engine and the check modules run against.
// All operations are synchronous; reads observe the store's own prior
// writes within one process.
type Store interface {
	// Team and ticket reads
	ListTeamMembers() ([]models.TeamMember, error)
	ListTickets(filter TicketFilter) ([]models.Ticket, error)

	// Status-transition history, append-only per ticket key
	LatestTransition(jiraKey string) (*models.StatusTransition, error)
	AppendTransition(t *models.StatusTransition) error
	ListTransitions(jiraKey string, limit int) ([]models.StatusTransition, error)

	// Accountability flags and activity reads
	ListActiveFlags(memberID uint, flagType string) ([]models.AccountabilityFlag, error)
	CreateFlag(f *models.AccountabilityFlag) error
	CountCommitsForTicket(jiraKey string, since time.Time) (int64, error)
	CountCommitsByMember(memberID uint, since time.Time) (int64, error)
	CountMergedPRsByMember(memberID uint, since time.Time) (int64, error)
	UpsertEngineerPattern(p *models.EngineerPattern) error

	// Automation ledger
	GetAutomationConfig() (*models.AutomationConfig, error)
	CreateRun(r *models.AutomationRun) error
	UpdateRun(r *models.AutomationRun) error
	CreateAction(a *models.AutomationAction) error
	GetAction(id uint) (*models.AutomationAction, error)
	UpdateActionStatus(id uint, status, resolvedBy string) error
	ListRecentRuns(limit int) ([]models.AutomationRun, error)
}

// GormStore is the GORM-backed Store implementation.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ListTeamMembers() ([]models.TeamMember, error) {
	var members []models.TeamMember
	if err := s.db.Where("is_active = ?", true).Order("id ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (s *GormStore) ListTickets(filter TicketFilter) ([]models.Ticket, error) {
	query := s.db.Model(&models.Ticket{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AssigneeID != nil {
		query = query.Where("assignee_id = ?", *filter.AssigneeID)
	}
	if filter.HasJiraKey {
		query = query.Where("jira_key != ''")
	}

	var tickets []models.Ticket
	if err := query.Order("id ASC").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *GormStore) LatestTransition(jiraKey string) (*models.StatusTransition, error) {
	var t models.StatusTransition
	err := s.db.Where("jira_key = ?", jiraKey).
		Order("changed_at DESC, id DESC").
		First(&t).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GormStore) AppendTransition(t *models.StatusTransition) error {
	return s.db.Create(t).Error
}

func (s *GormStore) ListTransitions(jiraKey string, limit int) ([]models.StatusTransition, error) {
	query := s.db.Model(&models.StatusTransition{})
	if jiraKey != "" {
		query = query.Where("jira_key = ?", jiraKey)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var transitions []models.StatusTransition
	if err := query.Order("changed_at DESC, id DESC").Find(&transitions).Error; err != nil {
		return nil, err
	}
	return transitions, nil
}

func (s *GormStore) ListActiveFlags(memberID uint, flagType string) ([]models.AccountabilityFlag, error) {
	query := s.db.Where("status = ?", models.FlagStatusActive)
	if memberID != 0 {
		query = query.Where("team_member_id = ?", memberID)
	}
	if flagType != "" {
		query = query.Where("flag_type = ?", flagType)
	}

	var flags []models.AccountabilityFlag
	if err := query.Order("id ASC").Find(&flags).Error; err != nil {
		return nil, err
	}
	return flags, nil
}

func (s *GormStore) CreateFlag(f *models.AccountabilityFlag) error {
	return s.db.Create(f).Error
}

func (s *GormStore) CountCommitsForTicket(jiraKey string, since time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.Commit{}).
		Where("committed_at >= ? AND message LIKE ?", since, "%"+jiraKey+"%").
		Count(&count).Error
	return count, err
}

func (s *GormStore) CountCommitsByMember(memberID uint, since time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.Commit{}).
		Where("team_member_id = ? AND committed_at >= ?", memberID, since).
		Count(&count).Error
	return count, err
}

func (s *GormStore) CountMergedPRsByMember(memberID uint, since time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.PullRequest{}).
		Where("team_member_id = ? AND state = ? AND merged_at >= ?", memberID, models.PullRequestStateMerged, since).
		Count(&count).Error
	return count, err
}

// UpsertEngineerPattern overwrites the existing row for the same
// (member, week) key instead of inserting a duplicate.
func (s *GormStore) UpsertEngineerPattern(p *models.EngineerPattern) error {
	var existing models.EngineerPattern
	err := s.db.Where("team_member_id = ? AND week_start = ?", p.TeamMemberID, p.WeekStart).
		First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return s.db.Create(p).Error
	}
	if err != nil {
		return err
	}

	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	return s.db.Save(p).Error
}

func (s *GormStore) GetAutomationConfig() (*models.AutomationConfig, error) {
	var cfg models.AutomationConfig
	if err := s.db.First(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *GormStore) CreateRun(r *models.AutomationRun) error {
	return s.db.Create(r).Error
}

func (s *GormStore) UpdateRun(r *models.AutomationRun) error {
	return s.db.Save(r).Error
}

func (s *GormStore) CreateAction(a *models.AutomationAction) error {
	return s.db.Create(a).Error
}

func (s *GormStore) GetAction(id uint) (*models.AutomationAction, error) {
	var a models.AutomationAction
	if err := s.db.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *GormStore) UpdateActionStatus(id uint, status, resolvedBy string) error {
	now := time.Now()
	return s.db.Model(&models.AutomationAction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"resolved_by": resolvedBy,
			"resolved_at": &now,
		}).Error
}

func (s *GormStore) ListRecentRuns(limit int) ([]models.AutomationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.AutomationRun
	if err := s.db.Order("started_at DESC, id DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
