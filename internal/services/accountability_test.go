package services

import (
	"context"
	"testing"
	"time"

	"github.com/teampulse-io/teampulse/backend/internal/models"
)

func testEnv(store Store) *CheckEnv {
	return &CheckEnv{Store: store, RunID: 1, Now: time.Now()}
}

func TestCaptureTransitions(t *testing.T) {
	store := newMemStore()
	store.tickets = []models.Ticket{
		{ID: 1, JiraKey: "TP-1", Status: models.TicketStatusTodo},
		{ID: 2, JiraKey: "TP-2", Status: models.TicketStatusInProgress},
		{ID: 3, Status: models.TicketStatusTodo}, // no tracker key, ignored
	}

	check := NewAccountabilityCheck(store, NewWorkdayService(""))

	if _, err := check.Run(context.Background(), testEnv(store)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	transitions := store.transitionsSnapshot()
	if len(transitions) != 2 {
		t.Fatalf("got %d transitions, expected 2", len(transitions))
	}
	for _, tr := range transitions {
		if tr.OldStatus != nil {
			t.Errorf("first transition for %s has old status %q, expected nil", tr.JiraKey, *tr.OldStatus)
		}
	}

	// Unchanged statuses append nothing
	if _, err := check.Run(context.Background(), testEnv(store)); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if got := len(store.transitionsSnapshot()); got != 2 {
		t.Fatalf("got %d transitions after unchanged cycle, expected 2", got)
	}

	// A status change appends exactly one record with the prior status
	store.tickets[0].Status = models.TicketStatusInProgress
	if _, err := check.Run(context.Background(), testEnv(store)); err != nil {
		t.Fatalf("third Run() error = %v", err)
	}

	transitions = store.transitionsSnapshot()
	if len(transitions) != 3 {
		t.Fatalf("got %d transitions after change, expected 3", len(transitions))
	}
	last := transitions[len(transitions)-1]
	if last.JiraKey != "TP-1" || last.NewStatus != models.TicketStatusInProgress {
		t.Errorf("last transition = %s -> %s, expected TP-1 -> in_progress", last.JiraKey, last.NewStatus)
	}
	if last.OldStatus == nil || *last.OldStatus != models.TicketStatusTodo {
		t.Errorf("old status = %v, expected todo", last.OldStatus)
	}
}

func TestFlagInactiveTickets(t *testing.T) {
	memberID := uint(1)

	tests := []struct {
		name       string
		commitAge  int // days ago; -1 means no commit
		startedAge int // days since the move to in_progress; -1 means first observed this cycle
		assigned   bool
		wantFlags  int
	}{
		{"recent commit", 1, 4, true, 0},
		{"commit at window edge", 2, 4, true, 0},
		{"stale commit", 4, 4, true, 1},
		{"no commits, stale start", -1, 4, true, 1},
		{"recently started, no commits yet", -1, 0, true, 0},
		{"first observed this cycle", -1, -1, true, 0},
		{"unassigned ticket", -1, 4, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.members = []models.TeamMember{{ID: memberID, Name: "Dana", IsActive: true}}

			ticket := models.Ticket{ID: 1, JiraKey: "TP-9", Status: models.TicketStatusInProgress}
			if tt.assigned {
				ticket.AssigneeID = &memberID
			}
			store.tickets = []models.Ticket{ticket}

			if tt.startedAge >= 0 {
				store.transitions = []models.StatusTransition{{
					ID:        90,
					JiraKey:   "TP-9",
					NewStatus: models.TicketStatusInProgress,
					ChangedAt: time.Now().AddDate(0, 0, -tt.startedAge),
				}}
			}

			if tt.commitAge >= 0 {
				store.commits = []models.Commit{{
					ID:           1,
					SHA:          "abc",
					TeamMemberID: &memberID,
					Message:      "TP-9 progress",
					CommittedAt:  time.Now().AddDate(0, 0, -tt.commitAge),
				}}
			}

			check := NewAccountabilityCheck(store, NewWorkdayService(""))
			actions, err := check.Run(context.Background(), testEnv(store))
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			flags := store.flagsSnapshot()
			if len(flags) != tt.wantFlags {
				t.Fatalf("got %d flags, expected %d", len(flags), tt.wantFlags)
			}
			if len(actions) != tt.wantFlags {
				t.Fatalf("got %d actions, expected %d", len(actions), tt.wantFlags)
			}
			if tt.wantFlags == 1 {
				if flags[0].Severity != models.SeverityMedium {
					t.Errorf("severity = %q, expected medium", flags[0].Severity)
				}
				if actions[0].Confidence != noActivityConfidence {
					t.Errorf("confidence = %v, expected %v", actions[0].Confidence, noActivityConfidence)
				}
			}
		})
	}
}

func TestFlagInactiveTickets_DedupAgainstActiveFlag(t *testing.T) {
	memberID := uint(1)
	store := newMemStore()
	store.members = []models.TeamMember{{ID: memberID, Name: "Dana", IsActive: true}}
	store.tickets = []models.Ticket{
		{ID: 1, JiraKey: "TP-9", Status: models.TicketStatusInProgress, AssigneeID: &memberID},
	}
	store.transitions = []models.StatusTransition{{
		ID:        90,
		JiraKey:   "TP-9",
		NewStatus: models.TicketStatusInProgress,
		ChangedAt: time.Now().AddDate(0, 0, -4),
	}}

	check := NewAccountabilityCheck(store, NewWorkdayService(""))

	actions, err := check.Run(context.Background(), testEnv(store))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("got %d actions on first run, expected 1", len(actions))
	}

	actions, err = check.Run(context.Background(), testEnv(store))
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if len(actions) != 0 {
		t.Errorf("got %d actions on second run, expected 0", len(actions))
	}
	if flags := store.flagsSnapshot(); len(flags) != 1 {
		t.Errorf("got %d flags, expected 1", len(flags))
	}
}

func TestFlagSprintRisk(t *testing.T) {
	tests := []struct {
		name      string
		active    int
		total     int
		wantFlags int
	}{
		{"light load", 2, 4, 0},
		{"active at threshold", 3, 8, 0},
		{"overloaded but few assigned", 4, 5, 0},
		{"over both thresholds", 4, 6, 1},
		{"heavily overloaded", 6, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			memberID := uint(1)
			store := newMemStore()
			store.members = []models.TeamMember{{ID: memberID, Name: "Kim", IsActive: true}}

			for i := 0; i < tt.total; i++ {
				status := models.TicketStatusTodo
				if i < tt.active {
					status = models.TicketStatusInProgress
				}
				store.tickets = append(store.tickets, models.Ticket{
					ID:         uint(i + 1),
					Status:     status,
					AssigneeID: &memberID,
				})
			}

			check := NewAccountabilityCheck(store, NewWorkdayService(""))
			actions, err := check.Run(context.Background(), testEnv(store))
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			var riskFlags []models.AccountabilityFlag
			for _, f := range store.flagsSnapshot() {
				if f.FlagType == models.FlagTypeSprintRisk {
					riskFlags = append(riskFlags, f)
				}
			}
			if len(riskFlags) != tt.wantFlags {
				t.Fatalf("got %d sprint risk flags, expected %d", len(riskFlags), tt.wantFlags)
			}
			if tt.wantFlags == 1 {
				if riskFlags[0].Severity != models.SeverityHigh {
					t.Errorf("severity = %q, expected high", riskFlags[0].Severity)
				}
				found := false
				for _, a := range actions {
					if a.Confidence == sprintRiskConfidence {
						found = true
					}
				}
				if !found {
					t.Errorf("no action with confidence %v", sprintRiskConfidence)
				}

				// Re-run must not duplicate the active flag
				if _, err := check.Run(context.Background(), testEnv(store)); err != nil {
					t.Fatalf("second Run() error = %v", err)
				}
				count := 0
				for _, f := range store.flagsSnapshot() {
					if f.FlagType == models.FlagTypeSprintRisk {
						count++
					}
				}
				if count != 1 {
					t.Errorf("got %d sprint risk flags after re-run, expected 1", count)
				}
			}
		})
	}
}

func TestRefreshWeeklyPatterns(t *testing.T) {
	memberID := uint(1)
	now := time.Now()
	weekStart := startOfWeek(now)

	started := weekStart.Add(2 * time.Hour)
	completed := started.Add(6 * time.Hour)
	mergedAt := weekStart.Add(3 * time.Hour)

	store := newMemStore()
	store.members = []models.TeamMember{{ID: memberID, Name: "Dana", IsActive: true}}
	store.tickets = []models.Ticket{
		{ID: 1, JiraKey: "TP-1", Status: models.TicketStatusDone, AssigneeID: &memberID, StartedAt: &started, CompletedAt: &completed},
		{ID: 2, JiraKey: "TP-2", Status: models.TicketStatusInProgress, AssigneeID: &memberID, StartedAt: &started},
	}
	store.commits = []models.Commit{
		{ID: 1, SHA: "a", TeamMemberID: &memberID, Message: "TP-1", CommittedAt: weekStart.Add(time.Hour)},
		{ID: 2, SHA: "b", TeamMemberID: &memberID, Message: "TP-2", CommittedAt: weekStart.Add(-time.Hour)}, // previous week
	}
	store.prs = []models.PullRequest{
		{ID: 1, TeamMemberID: &memberID, State: models.PullRequestStateMerged, MergedAt: &mergedAt},
	}

	check := NewAccountabilityCheck(store, NewWorkdayService(""))
	if _, err := check.Run(context.Background(), &CheckEnv{Store: store, RunID: 1, Now: now}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	patterns := store.patternsSnapshot()
	if len(patterns) != 1 {
		t.Fatalf("got %d patterns, expected 1", len(patterns))
	}
	p := patterns[0]
	if !p.WeekStart.Equal(weekStart) {
		t.Errorf("week start = %v, expected %v", p.WeekStart, weekStart)
	}
	if p.TicketsCompleted != 1 || p.TicketsStarted != 2 {
		t.Errorf("completed=%d started=%d, expected 1/2", p.TicketsCompleted, p.TicketsStarted)
	}
	if p.CommitsCount != 1 {
		t.Errorf("commits = %d, expected 1 (previous week excluded)", p.CommitsCount)
	}
	if p.PRsMerged != 1 {
		t.Errorf("prs merged = %d, expected 1", p.PRsMerged)
	}
	if p.AvgCycleTimeHours == nil {
		t.Fatal("avg cycle time is nil")
	}
	if *p.AvgCycleTimeHours != 6 {
		t.Errorf("avg cycle time = %v, expected 6 (same-day span)", *p.AvgCycleTimeHours)
	}

	// A second run in the same week overwrites rather than duplicates
	if _, err := check.Run(context.Background(), &CheckEnv{Store: store, RunID: 2, Now: now}); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if got := len(store.patternsSnapshot()); got != 1 {
		t.Errorf("got %d patterns after second run, expected 1", got)
	}

	// A run past the week boundary starts a fresh row for the new week
	// and leaves the old one untouched
	nextWeek := now.AddDate(0, 0, 7)
	if _, err := check.Run(context.Background(), &CheckEnv{Store: store, RunID: 3, Now: nextWeek}); err != nil {
		t.Fatalf("next-week Run() error = %v", err)
	}

	patterns = store.patternsSnapshot()
	if len(patterns) != 2 {
		t.Fatalf("got %d patterns after week rollover, expected 2", len(patterns))
	}
	var oldWeek, newWeek bool
	for _, p := range patterns {
		switch {
		case p.WeekStart.Equal(weekStart):
			oldWeek = true
			if p.TicketsCompleted != 1 {
				t.Errorf("previous week completed = %d, expected 1", p.TicketsCompleted)
			}
		case p.WeekStart.Equal(startOfWeek(nextWeek)):
			newWeek = true
		}
	}
	if !oldWeek || !newWeek {
		t.Errorf("expected rows for both weeks, got old=%v new=%v", oldWeek, newWeek)
	}
}

func TestStartOfWeek(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			"midweek",
			time.Date(2026, 8, 26, 15, 30, 0, 0, time.Local), // Wednesday
			time.Date(2026, 8, 23, 0, 0, 0, 0, time.Local),
		},
		{
			"sunday maps to itself",
			time.Date(2026, 8, 23, 10, 0, 0, 0, time.Local),
			time.Date(2026, 8, 23, 0, 0, 0, 0, time.Local),
		},
		{
			"saturday maps back six days",
			time.Date(2026, 8, 29, 23, 59, 0, 0, time.Local),
			time.Date(2026, 8, 23, 0, 0, 0, 0, time.Local),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := startOfWeek(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("startOfWeek(%v) = %v, expected %v", tt.in, got, tt.want)
			}
		})
	}
}
