package services

import (
	"context"
	"fmt"

	"github.com/teampulse-io/teampulse/backend/internal/models"
	"github.com/teampulse-io/teampulse/backend/pkg/logger"
)

// PM alert severities
const (
	PMSeverityCritical = "critical"
	PMSeverityWarning  = "warning"
	PMSeverityInfo     = "info"
)

// PMAlert is a delegate-reported problem with a member's workload.
type PMAlert struct {
	TeamMemberID uint
	Severity     string // critical, warning, info
	Title        string
	Detail       string
	Metadata     map[string]interface{}
}

// PMSuggestion is a delegate-proposed ticket assignment for an
// underutilized member. MatchScore in [0, 1] becomes the action's
// confidence unchanged.
type PMSuggestion struct {
	TeamMemberID uint
	TicketID     uint
	JiraKey      string
	Title        string
	Reason       string
	MatchScore   float64
}

// PMDelegate supplies the project-management judgment the check wraps.
// Implementations range from pure heuristics over the store to
// LLM-backed analyzers; the check treats them identically.
type PMDelegate interface {
	DetectProblematicEngineers(ctx context.Context, env *CheckEnv) ([]PMAlert, error)
	DetectUnderutilizedEngineers(ctx context.Context, env *CheckEnv) ([]models.TeamMember, error)
	GenerateSuggestions(ctx context.Context, env *CheckEnv, memberID uint) ([]PMSuggestion, error)
}

// PMCheck adapts a PMDelegate into a check module: alerts become
// pm_alert actions with severity-mapped confidence, suggestions become
// pm_suggestion actions carrying the delegate's match score.
type PMCheck struct {
	delegate PMDelegate
	enabled  bool
}

func NewPMCheck(delegate PMDelegate) *PMCheck {
	return &PMCheck{
		delegate: delegate,
		enabled:  true,
	}
}

func (c *PMCheck) SetEnabled(enabled bool) {
	c.enabled = enabled
}

func (c *PMCheck) Name() string { return "pm_assistant" }

func (c *PMCheck) Enabled() bool { return c.enabled && c.delegate != nil }

func (c *PMCheck) Run(ctx context.Context, env *CheckEnv) ([]ProposedAction, error) {
	var actions []ProposedAction

	alerts, err := c.delegate.DetectProblematicEngineers(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("detect problematic engineers: %w", err)
	}
	for _, alert := range alerts {
		metadata := map[string]interface{}{
			"team_member_id": alert.TeamMemberID,
			"severity":       alert.Severity,
		}
		for k, v := range alert.Metadata {
			metadata[k] = v
		}
		actions = append(actions, ProposedAction{
			Type:        models.ActionTypePMAlert,
			CheckModule: c.Name(),
			Title:       alert.Title,
			Description: alert.Detail,
			Confidence:  confidenceForSeverity(alert.Severity),
			Metadata:    metadata,
		})
	}

	idle, err := c.delegate.DetectUnderutilizedEngineers(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("detect underutilized engineers: %w", err)
	}
	for i := range idle {
		member := &idle[i]

		suggestions, err := c.delegate.GenerateSuggestions(ctx, env, member.ID)
		if err != nil {
			// One member's failed suggestions do not void the others
			logger.Warn().Err(err).Str("member", member.Name).Msg("[PMCheck] Suggestion generation failed")
			continue
		}
		for _, s := range suggestions {
			actions = append(actions, ProposedAction{
				Type:        models.ActionTypePMSuggestion,
				CheckModule: c.Name(),
				Title:       fmt.Sprintf("Assign %s to %s", s.JiraKey, member.Name),
				Description: s.Reason,
				Confidence:  s.MatchScore,
				Metadata: map[string]interface{}{
					"team_member_id": s.TeamMemberID,
					"ticket_id":      s.TicketID,
					"jira_key":       s.JiraKey,
					"match_score":    s.MatchScore,
				},
			})
		}
	}

	return actions, nil
}

// confidenceForSeverity maps delegate severities onto action confidence.
func confidenceForSeverity(severity string) float64 {
	switch severity {
	case PMSeverityCritical:
		return 0.9
	case PMSeverityWarning:
		return 0.7
	default:
		return 0.5
	}
}
