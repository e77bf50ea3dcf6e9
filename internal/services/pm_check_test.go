package services

import (
	"context"
	"errors"
	"testing"

	"github.com/teampulse-io/teampulse/backend/internal/models"
)

type stubDelegate struct {
	alerts      []PMAlert
	alertsErr   error
	idle        []models.TeamMember
	idleErr     error
	suggestions map[uint][]PMSuggestion
	suggestErr  map[uint]error
}

func (d *stubDelegate) DetectProblematicEngineers(ctx context.Context, env *CheckEnv) ([]PMAlert, error) {
	return d.alerts, d.alertsErr
}

func (d *stubDelegate) DetectUnderutilizedEngineers(ctx context.Context, env *CheckEnv) ([]models.TeamMember, error) {
	return d.idle, d.idleErr
}

func (d *stubDelegate) GenerateSuggestions(ctx context.Context, env *CheckEnv, memberID uint) ([]PMSuggestion, error) {
	if err := d.suggestErr[memberID]; err != nil {
		return nil, err
	}
	return d.suggestions[memberID], nil
}

func TestConfidenceForSeverity(t *testing.T) {
	tests := []struct {
		severity string
		want     float64
	}{
		{PMSeverityCritical, 0.9},
		{PMSeverityWarning, 0.7},
		{PMSeverityInfo, 0.5},
		{"unknown", 0.5},
		{"", 0.5},
	}

	for _, tt := range tests {
		if got := confidenceForSeverity(tt.severity); got != tt.want {
			t.Errorf("confidenceForSeverity(%q) = %v, expected %v", tt.severity, got, tt.want)
		}
	}
}

func TestPMCheck_AlertsBecomeActions(t *testing.T) {
	delegate := &stubDelegate{
		alerts: []PMAlert{
			{TeamMemberID: 1, Severity: PMSeverityCritical, Title: "Severe overload: Kim", Detail: "8 in progress"},
			{TeamMemberID: 2, Severity: PMSeverityWarning, Title: "Overload: Dana", Detail: "4 in progress"},
		},
	}
	check := NewPMCheck(delegate)

	actions, err := check.Run(context.Background(), testEnv(newMemStore()))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("got %d actions, expected 2", len(actions))
	}

	if actions[0].Type != models.ActionTypePMAlert {
		t.Errorf("action type = %q, expected %q", actions[0].Type, models.ActionTypePMAlert)
	}
	if actions[0].Confidence != 0.9 {
		t.Errorf("critical alert confidence = %v, expected 0.9", actions[0].Confidence)
	}
	if actions[1].Confidence != 0.7 {
		t.Errorf("warning alert confidence = %v, expected 0.7", actions[1].Confidence)
	}
	if actions[0].Metadata["severity"] != PMSeverityCritical {
		t.Errorf("metadata severity = %v, expected critical", actions[0].Metadata["severity"])
	}
}

func TestPMCheck_SuggestionsCarryMatchScore(t *testing.T) {
	delegate := &stubDelegate{
		idle: []models.TeamMember{{ID: 5, Name: "Ravi"}},
		suggestions: map[uint][]PMSuggestion{
			5: {
				{TeamMemberID: 5, TicketID: 1, JiraKey: "TP-7", Title: "Cache layer", Reason: "matches skills", MatchScore: 0.6},
			},
		},
	}
	check := NewPMCheck(delegate)

	actions, err := check.Run(context.Background(), testEnv(newMemStore()))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("got %d actions, expected 1", len(actions))
	}
	if actions[0].Type != models.ActionTypePMSuggestion {
		t.Errorf("action type = %q, expected %q", actions[0].Type, models.ActionTypePMSuggestion)
	}
	if actions[0].Confidence != 0.6 {
		t.Errorf("confidence = %v, expected match score 0.6 unchanged", actions[0].Confidence)
	}
	if actions[0].Metadata["jira_key"] != "TP-7" {
		t.Errorf("metadata jira_key = %v, expected TP-7", actions[0].Metadata["jira_key"])
	}
}

func TestPMCheck_SuggestionFailureSkipsMember(t *testing.T) {
	delegate := &stubDelegate{
		idle: []models.TeamMember{{ID: 1, Name: "Kim"}, {ID: 2, Name: "Dana"}},
		suggestions: map[uint][]PMSuggestion{
			2: {{TeamMemberID: 2, TicketID: 9, JiraKey: "TP-9", MatchScore: 0.45}},
		},
		suggestErr: map[uint]error{1: errors.New("member data unavailable")},
	}
	check := NewPMCheck(delegate)

	actions, err := check.Run(context.Background(), testEnv(newMemStore()))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("got %d actions, expected 1 from the healthy member", len(actions))
	}
	if actions[0].Metadata["team_member_id"] != uint(2) {
		t.Errorf("action member = %v, expected 2", actions[0].Metadata["team_member_id"])
	}
}

func TestPMCheck_DelegateErrorFailsCheck(t *testing.T) {
	check := NewPMCheck(&stubDelegate{alertsErr: errors.New("analysis backend down")})

	if _, err := check.Run(context.Background(), testEnv(newMemStore())); err == nil {
		t.Fatal("Run() error = nil, expected delegate error to surface")
	}
}

func TestPMCheck_DisabledWithoutDelegate(t *testing.T) {
	check := NewPMCheck(nil)
	if check.Enabled() {
		t.Error("Enabled() = true without a delegate")
	}
}
