package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/teampulse-io/teampulse/backend/internal/models"
	"github.com/teampulse-io/teampulse/backend/pkg/logger"
)

const (
	// No commits referencing the ticket for this many calendar days
	// flags the assignee.
	noActivityLookbackDays = 3

	// Sprint risk triggers when a member has more than this many tickets
	// in progress at once...
	sprintRiskActiveThreshold = 3
	// ...and more than this many assigned overall.
	sprintRiskAssignedThreshold = 5

	noActivityConfidence = 0.7
	sprintRiskConfidence = 0.6
)

// AccountabilityCheck watches ticket and activity data for signs of
// stalled or overloaded work. One run makes four passes: capture status
// transitions, flag inactive in-progress tickets, flag overloaded
// members and refresh the weekly per-member rollups.
//
// Every pass is idempotent; re-running against unchanged data produces
// no new flags, transitions or duplicate rollup rows.
type AccountabilityCheck struct {
	store    Store
	workdays *WorkdayService
	analyzer PatternAnalyzer // optional, enriches rollups with an LLM summary
	enabled  bool
}

func NewAccountabilityCheck(store Store, workdays *WorkdayService) *AccountabilityCheck {
	return &AccountabilityCheck{
		store:    store,
		workdays: workdays,
		enabled:  true,
	}
}

// SetAnalyzer wires the optional pattern analyzer. Analysis failures
// degrade to an empty summary, never to a failed check.
func (c *AccountabilityCheck) SetAnalyzer(a PatternAnalyzer) {
	c.analyzer = a
}

func (c *AccountabilityCheck) SetEnabled(enabled bool) {
	c.enabled = enabled
}

func (c *AccountabilityCheck) Name() string { return "accountability" }

func (c *AccountabilityCheck) Enabled() bool { return c.enabled }

func (c *AccountabilityCheck) Run(ctx context.Context, env *CheckEnv) ([]ProposedAction, error) {
	if err := c.captureTransitions(env); err != nil {
		return nil, fmt.Errorf("capture transitions: %w", err)
	}

	var actions []ProposedAction

	inactive, err := c.flagInactiveTickets(env)
	if err != nil {
		return nil, fmt.Errorf("flag inactive tickets: %w", err)
	}
	actions = append(actions, inactive...)

	overloaded, err := c.flagSprintRisk(env)
	if err != nil {
		return nil, fmt.Errorf("flag sprint risk: %w", err)
	}
	actions = append(actions, overloaded...)

	if err := c.refreshWeeklyPatterns(ctx, env); err != nil {
		return nil, fmt.Errorf("refresh weekly patterns: %w", err)
	}

	return actions, nil
}

// captureTransitions appends a history record for every ticket whose
// current status differs from the most recently recorded one. Unchanged
// tickets append nothing, so the history stays one record per actual
// change.
func (c *AccountabilityCheck) captureTransitions(env *CheckEnv) error {
	tickets, err := env.Store.ListTickets(TicketFilter{HasJiraKey: true})
	if err != nil {
		return err
	}

	for _, ticket := range tickets {
		latest, err := env.Store.LatestTransition(ticket.JiraKey)
		if err != nil {
			return err
		}
		if latest != nil && latest.NewStatus == ticket.Status {
			continue
		}

		var oldStatus *string
		if latest != nil {
			s := latest.NewStatus
			oldStatus = &s
		}
		if err := env.Store.AppendTransition(&models.StatusTransition{
			JiraKey:   ticket.JiraKey,
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			ChangedAt: env.Now,
		}); err != nil {
			return err
		}
	}
	return nil
}

// flagInactiveTickets flags assignees of in-progress tickets that no
// commit has referenced within the lookback window. Tickets that only
// entered in_progress inside the window have had no time to accumulate
// commits and are not flagged yet. A ticket with an existing active
// flag is skipped so the same stall is reported once.
func (c *AccountabilityCheck) flagInactiveTickets(env *CheckEnv) ([]ProposedAction, error) {
	tickets, err := env.Store.ListTickets(TicketFilter{
		Status:     models.TicketStatusInProgress,
		HasJiraKey: true,
	})
	if err != nil {
		return nil, err
	}

	since := env.Now.AddDate(0, 0, -noActivityLookbackDays)

	var actions []ProposedAction
	for _, ticket := range tickets {
		if ticket.AssigneeID == nil {
			continue
		}

		latest, err := env.Store.LatestTransition(ticket.JiraKey)
		if err != nil {
			return nil, err
		}
		if latest != nil && latest.NewStatus == models.TicketStatusInProgress && latest.ChangedAt.After(since) {
			continue
		}

		count, err := env.Store.CountCommitsForTicket(ticket.JiraKey, since)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			continue
		}

		flagged, err := c.hasActiveFlagFor(env, *ticket.AssigneeID, models.FlagTypeNoCommits, ticket.JiraKey)
		if err != nil {
			return nil, err
		}
		if flagged {
			continue
		}

		metadata := map[string]interface{}{
			"jira_key":       ticket.JiraKey,
			"team_member_id": *ticket.AssigneeID,
			"lookback_days":  noActivityLookbackDays,
		}
		metadataJSON, _ := json.Marshal(metadata)

		flag := &models.AccountabilityFlag{
			TeamMemberID: *ticket.AssigneeID,
			FlagType:     models.FlagTypeNoCommits,
			Severity:     models.SeverityMedium,
			Message:      fmt.Sprintf("No commits referencing %s in the last %d days while in progress", ticket.JiraKey, noActivityLookbackDays),
			Metadata:     string(metadataJSON),
			Status:       models.FlagStatusActive,
		}
		if err := env.Store.CreateFlag(flag); err != nil {
			return nil, err
		}

		actions = append(actions, ProposedAction{
			Type:        models.ActionTypeAccountabilityFlag,
			CheckModule: c.Name(),
			Title:       fmt.Sprintf("Stalled ticket %s", ticket.JiraKey),
			Description: flag.Message,
			Confidence:  noActivityConfidence,
			Metadata: map[string]interface{}{
				"flag_id":        flag.ID,
				"flag_type":      models.FlagTypeNoCommits,
				"severity":       models.SeverityMedium,
				"jira_key":       ticket.JiraKey,
				"team_member_id": *ticket.AssigneeID,
			},
		})
	}
	return actions, nil
}

// flagSprintRisk flags members juggling too much parallel work: more
// than sprintRiskActiveThreshold tickets in progress out of more than
// sprintRiskAssignedThreshold assigned.
func (c *AccountabilityCheck) flagSprintRisk(env *CheckEnv) ([]ProposedAction, error) {
	members, err := env.Store.ListTeamMembers()
	if err != nil {
		return nil, err
	}

	var actions []ProposedAction
	for i := range members {
		member := &members[i]

		assigned, err := env.Store.ListTickets(TicketFilter{AssigneeID: &member.ID})
		if err != nil {
			return nil, err
		}

		active := 0
		for _, t := range assigned {
			if t.Status == models.TicketStatusInProgress {
				active++
			}
		}
		if active <= sprintRiskActiveThreshold || len(assigned) <= sprintRiskAssignedThreshold {
			continue
		}

		existing, err := env.Store.ListActiveFlags(member.ID, models.FlagTypeSprintRisk)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			continue
		}

		metadata := map[string]interface{}{
			"team_member_id": member.ID,
			"active_tickets": active,
			"total_assigned": len(assigned),
		}
		metadataJSON, _ := json.Marshal(metadata)

		flag := &models.AccountabilityFlag{
			TeamMemberID: member.ID,
			FlagType:     models.FlagTypeSprintRisk,
			Severity:     models.SeverityHigh,
			Message:      fmt.Sprintf("%s has %d tickets in progress out of %d assigned", member.Name, active, len(assigned)),
			Metadata:     string(metadataJSON),
			Status:       models.FlagStatusActive,
		}
		if err := env.Store.CreateFlag(flag); err != nil {
			return nil, err
		}

		actions = append(actions, ProposedAction{
			Type:        models.ActionTypeAccountabilityFlag,
			CheckModule: c.Name(),
			Title:       fmt.Sprintf("Sprint risk: %s", member.Name),
			Description: flag.Message,
			Confidence:  sprintRiskConfidence,
			Metadata: map[string]interface{}{
				"flag_id":        flag.ID,
				"flag_type":      models.FlagTypeSprintRisk,
				"severity":       models.SeverityHigh,
				"team_member_id": member.ID,
				"active_tickets": active,
				"total_assigned": len(assigned),
			},
		})
	}
	return actions, nil
}

// refreshWeeklyPatterns upserts the current week's rollup for every
// active member. The same (member, week) row is overwritten on each
// cycle within the week.
func (c *AccountabilityCheck) refreshWeeklyPatterns(ctx context.Context, env *CheckEnv) error {
	members, err := env.Store.ListTeamMembers()
	if err != nil {
		return err
	}

	weekStart := startOfWeek(env.Now)

	for i := range members {
		member := &members[i]

		commits, err := env.Store.CountCommitsByMember(member.ID, weekStart)
		if err != nil {
			return err
		}
		prs, err := env.Store.CountMergedPRsByMember(member.ID, weekStart)
		if err != nil {
			return err
		}

		assigned, err := env.Store.ListTickets(TicketFilter{AssigneeID: &member.ID})
		if err != nil {
			return err
		}

		var (
			completed, started int
			cycleHours         []float64
		)
		for _, t := range assigned {
			if t.StartedAt != nil && !t.StartedAt.Before(weekStart) {
				started++
			}
			if t.CompletedAt != nil && !t.CompletedAt.Before(weekStart) {
				completed++
				if t.StartedAt != nil {
					cycleHours = append(cycleHours, c.workdays.CycleHours(*t.StartedAt, *t.CompletedAt))
				}
			}
		}

		pattern := &models.EngineerPattern{
			TeamMemberID:     member.ID,
			WeekStart:        weekStart,
			TicketsCompleted: completed,
			TicketsStarted:   started,
			CommitsCount:     int(commits),
			PRsMerged:        int(prs),
		}
		if len(cycleHours) > 0 {
			var sum float64
			for _, h := range cycleHours {
				sum += h
			}
			avg := sum / float64(len(cycleHours))
			pattern.AvgCycleTimeHours = &avg
		}

		if c.analyzer != nil {
			analysis, err := c.analyzer.AnalyzePattern(ctx, member, pattern)
			if err != nil {
				logger.Warn().Err(err).Str("member", member.Name).Msg("[Accountability] Pattern analysis failed")
			} else {
				pattern.AIAnalysis = analysis
			}
		}

		if err := env.Store.UpsertEngineerPattern(pattern); err != nil {
			return err
		}
	}
	return nil
}

// hasActiveFlagFor reports whether the member already carries an active
// flag of the given type for the given ticket key.
func (c *AccountabilityCheck) hasActiveFlagFor(env *CheckEnv, memberID uint, flagType, jiraKey string) (bool, error) {
	flags, err := env.Store.ListActiveFlags(memberID, flagType)
	if err != nil {
		return false, err
	}
	for _, f := range flags {
		var meta struct {
			JiraKey string `json:"jira_key"`
		}
		if err := json.Unmarshal([]byte(f.Metadata), &meta); err != nil {
			continue
		}
		if meta.JiraKey == jiraKey {
			return true, nil
		}
	}
	return false, nil
}

// startOfWeek returns the most recent Sunday at local midnight.
func startOfWeek(t time.Time) time.Time {
	t = t.Local()
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return t.AddDate(0, 0, -int(t.Weekday()))
}
