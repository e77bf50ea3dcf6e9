package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/teampulse-io/teampulse/backend/internal/models"
)

const (
	// In-progress counts at which the workload delegate raises alerts.
	overloadWarningThreshold  = 4
	overloadCriticalThreshold = 6

	// How far back commits count as recent activity.
	idleCommitLookbackDays = 7

	// Suggestion scoring: base score plus a bonus per matched skill,
	// capped below the usual auto-approve range so suggestions default
	// to operator review.
	suggestionBaseScore  = 0.3
	suggestionSkillBonus = 0.15
	suggestionMaxScore   = 0.75
	maxSuggestionsPerMember = 3
)

// WorkloadDelegate is the built-in PMDelegate: pure heuristics over the
// store, no external calls. Problematic means overloaded or active with
// no recent commits; underutilized means nothing in progress; ticket
// suggestions rank the unassigned backlog by skill keyword overlap.
type WorkloadDelegate struct{}

func NewWorkloadDelegate() *WorkloadDelegate {
	return &WorkloadDelegate{}
}

func (d *WorkloadDelegate) DetectProblematicEngineers(ctx context.Context, env *CheckEnv) ([]PMAlert, error) {
	members, err := env.Store.ListTeamMembers()
	if err != nil {
		return nil, err
	}

	var alerts []PMAlert
	for i := range members {
		member := &members[i]

		active, err := env.Store.ListTickets(TicketFilter{
			Status:     models.TicketStatusInProgress,
			AssigneeID: &member.ID,
		})
		if err != nil {
			return nil, err
		}

		switch {
		case len(active) >= overloadCriticalThreshold:
			alerts = append(alerts, PMAlert{
				TeamMemberID: member.ID,
				Severity:     PMSeverityCritical,
				Title:        fmt.Sprintf("Severe overload: %s", member.Name),
				Detail:       fmt.Sprintf("%s has %d tickets in progress", member.Name, len(active)),
				Metadata:     map[string]interface{}{"active_tickets": len(active)},
			})
			continue
		case len(active) >= overloadWarningThreshold:
			alerts = append(alerts, PMAlert{
				TeamMemberID: member.ID,
				Severity:     PMSeverityWarning,
				Title:        fmt.Sprintf("Overload: %s", member.Name),
				Detail:       fmt.Sprintf("%s has %d tickets in progress", member.Name, len(active)),
				Metadata:     map[string]interface{}{"active_tickets": len(active)},
			})
			continue
		}

		if len(active) == 0 {
			continue
		}
		commits, err := env.Store.CountCommitsByMember(member.ID, env.Now.AddDate(0, 0, -idleCommitLookbackDays))
		if err != nil {
			return nil, err
		}
		if commits == 0 {
			alerts = append(alerts, PMAlert{
				TeamMemberID: member.ID,
				Severity:     PMSeverityWarning,
				Title:        fmt.Sprintf("No recent commits: %s", member.Name),
				Detail:       fmt.Sprintf("%s has %d tickets in progress but no commits in %d days", member.Name, len(active), idleCommitLookbackDays),
				Metadata:     map[string]interface{}{"active_tickets": len(active)},
			})
		}
	}
	return alerts, nil
}

func (d *WorkloadDelegate) DetectUnderutilizedEngineers(ctx context.Context, env *CheckEnv) ([]models.TeamMember, error) {
	members, err := env.Store.ListTeamMembers()
	if err != nil {
		return nil, err
	}

	var idle []models.TeamMember
	for i := range members {
		member := members[i]

		active, err := env.Store.ListTickets(TicketFilter{
			Status:     models.TicketStatusInProgress,
			AssigneeID: &member.ID,
		})
		if err != nil {
			return nil, err
		}
		if len(active) == 0 {
			idle = append(idle, member)
		}
	}
	return idle, nil
}

func (d *WorkloadDelegate) GenerateSuggestions(ctx context.Context, env *CheckEnv, memberID uint) ([]PMSuggestion, error) {
	members, err := env.Store.ListTeamMembers()
	if err != nil {
		return nil, err
	}
	var member *models.TeamMember
	for i := range members {
		if members[i].ID == memberID {
			member = &members[i]
			break
		}
	}
	if member == nil {
		return nil, fmt.Errorf("team member %d not found", memberID)
	}

	skills := splitSkills(member.Skills)

	var candidates []models.Ticket
	for _, status := range []string{models.TicketStatusTodo, models.TicketStatusBacklog} {
		tickets, err := env.Store.ListTickets(TicketFilter{Status: status})
		if err != nil {
			return nil, err
		}
		for _, t := range tickets {
			if t.AssigneeID == nil {
				candidates = append(candidates, t)
			}
		}
	}

	var suggestions []PMSuggestion
	for _, ticket := range candidates {
		matched := matchSkills(skills, ticket)
		score := suggestionBaseScore + float64(len(matched))*suggestionSkillBonus
		if score > suggestionMaxScore {
			score = suggestionMaxScore
		}

		reason := fmt.Sprintf("%s is unassigned and %s has capacity", ticket.Title, member.Name)
		if len(matched) > 0 {
			reason = fmt.Sprintf("%s matches %s's skills (%s)", ticket.Title, member.Name, strings.Join(matched, ", "))
		}

		suggestions = append(suggestions, PMSuggestion{
			TeamMemberID: member.ID,
			TicketID:     ticket.ID,
			JiraKey:      ticket.JiraKey,
			Title:        ticket.Title,
			Reason:       reason,
			MatchScore:   score,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].MatchScore > suggestions[j].MatchScore
	})
	if len(suggestions) > maxSuggestionsPerMember {
		suggestions = suggestions[:maxSuggestionsPerMember]
	}
	return suggestions, nil
}

func splitSkills(skills string) []string {
	var out []string
	for _, s := range strings.Split(skills, ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// matchSkills returns the member skills mentioned in the ticket's title,
// description or epic.
func matchSkills(skills []string, ticket models.Ticket) []string {
	haystack := strings.ToLower(ticket.Title + " " + ticket.Description + " " + ticket.Epic)

	var matched []string
	for _, skill := range skills {
		if strings.Contains(haystack, skill) {
			matched = append(matched, skill)
		}
	}
	return matched
}
