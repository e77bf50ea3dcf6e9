package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/teampulse-io/teampulse/backend/internal/models"
)

// memStore is an in-memory Store used by the engine and check tests.
// Optional fail* hooks inject errors per method.
type memStore struct {
	mu sync.Mutex

	config      models.AutomationConfig
	members     []models.TeamMember
	tickets     []models.Ticket
	commits     []models.Commit
	prs         []models.PullRequest
	transitions []models.StatusTransition
	flags       []models.AccountabilityFlag
	patterns    []models.EngineerPattern
	runs        []models.AutomationRun
	actions     []models.AutomationAction

	nextID uint

	failCreateAction bool
	failGetConfig    bool
}

func newMemStore() *memStore {
	return &memStore{
		config: models.AutomationConfig{
			ID:                   1,
			Enabled:              true,
			CheckIntervalMinutes: 60,
			AutoApproveThreshold: 0.8,
			NotifyOnNewActions:   false,
		},
		nextID: 1,
	}
}

func (s *memStore) id() uint {
	id := s.nextID
	s.nextID++
	return id
}

func (s *memStore) ListTeamMembers() ([]models.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.TeamMember
	for _, m := range s.members {
		if m.IsActive {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) ListTickets(filter TicketFilter) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Ticket
	for _, t := range s.tickets {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if filter.HasJiraKey && t.JiraKey == "" {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *memStore) LatestTransition(jiraKey string) (*models.StatusTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.StatusTransition
	for i := range s.transitions {
		tr := s.transitions[i]
		if tr.JiraKey != jiraKey {
			continue
		}
		if latest == nil || tr.ChangedAt.After(latest.ChangedAt) || (tr.ChangedAt.Equal(latest.ChangedAt) && tr.ID > latest.ID) {
			latest = &s.transitions[i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *memStore) AppendTransition(t *models.StatusTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = s.id()
	s.transitions = append(s.transitions, *t)
	return nil
}

func (s *memStore) ListTransitions(jiraKey string, limit int) ([]models.StatusTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.StatusTransition
	for _, tr := range s.transitions {
		if jiraKey != "" && tr.JiraKey != jiraKey {
			continue
		}
		out = append(out, tr)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) ListActiveFlags(memberID uint, flagType string) ([]models.AccountabilityFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.AccountabilityFlag
	for _, f := range s.flags {
		if f.Status != models.FlagStatusActive {
			continue
		}
		if memberID != 0 && f.TeamMemberID != memberID {
			continue
		}
		if flagType != "" && f.FlagType != flagType {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *memStore) CreateFlag(f *models.AccountabilityFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.ID = s.id()
	f.CreatedAt = time.Now()
	s.flags = append(s.flags, *f)
	return nil
}

func (s *memStore) CountCommitsForTicket(jiraKey string, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, c := range s.commits {
		if !c.CommittedAt.Before(since) && strings.Contains(c.Message, jiraKey) {
			count++
		}
	}
	return count, nil
}

func (s *memStore) CountCommitsByMember(memberID uint, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, c := range s.commits {
		if c.TeamMemberID != nil && *c.TeamMemberID == memberID && !c.CommittedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *memStore) CountMergedPRsByMember(memberID uint, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, pr := range s.prs {
		if pr.TeamMemberID != nil && *pr.TeamMemberID == memberID &&
			pr.State == models.PullRequestStateMerged &&
			pr.MergedAt != nil && !pr.MergedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *memStore) UpsertEngineerPattern(p *models.EngineerPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.patterns {
		if s.patterns[i].TeamMemberID == p.TeamMemberID && s.patterns[i].WeekStart.Equal(p.WeekStart) {
			p.ID = s.patterns[i].ID
			s.patterns[i] = *p
			return nil
		}
	}
	p.ID = s.id()
	s.patterns = append(s.patterns, *p)
	return nil
}

func (s *memStore) GetAutomationConfig() (*models.AutomationConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failGetConfig {
		return nil, fmt.Errorf("config unavailable")
	}
	cfg := s.config
	return &cfg, nil
}

func (s *memStore) CreateRun(r *models.AutomationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = s.id()
	r.CreatedAt = time.Now()
	s.runs = append(s.runs, *r)
	return nil
}

func (s *memStore) UpdateRun(r *models.AutomationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.runs {
		if s.runs[i].ID == r.ID {
			s.runs[i] = *r
			return nil
		}
	}
	return fmt.Errorf("run %d not found", r.ID)
}

func (s *memStore) CreateAction(a *models.AutomationAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreateAction {
		return fmt.Errorf("action insert failed")
	}
	a.ID = s.id()
	a.CreatedAt = time.Now()
	s.actions = append(s.actions, *a)
	return nil
}

func (s *memStore) GetAction(id uint) (*models.AutomationAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.actions {
		if s.actions[i].ID == id {
			cp := s.actions[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("action %d not found", id)
}

func (s *memStore) UpdateActionStatus(id uint, status, resolvedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.actions {
		if s.actions[i].ID == id {
			now := time.Now()
			s.actions[i].Status = status
			s.actions[i].ResolvedBy = resolvedBy
			s.actions[i].ResolvedAt = &now
			return nil
		}
	}
	return fmt.Errorf("action %d not found", id)
}

func (s *memStore) ListRecentRuns(limit int) ([]models.AutomationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]models.AutomationRun(nil), s.runs...)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// snapshot helpers for assertions

func (s *memStore) actionsSnapshot() []models.AutomationAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AutomationAction(nil), s.actions...)
}

func (s *memStore) runsSnapshot() []models.AutomationRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AutomationRun(nil), s.runs...)
}

func (s *memStore) flagsSnapshot() []models.AccountabilityFlag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AccountabilityFlag(nil), s.flags...)
}

func (s *memStore) transitionsSnapshot() []models.StatusTransition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.StatusTransition(nil), s.transitions...)
}

func (s *memStore) patternsSnapshot() []models.EngineerPattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.EngineerPattern(nil), s.patterns...)
}
