package services

import (
	"time"

	"github.com/teampulse-io/teampulse/backend/internal/models"
)

// StampTicketStatus records the lifecycle timestamps a status change
// implies: the first move into in_progress sets started_at, the move
// into done sets completed_at. Existing stamps are never overwritten,
// so a ticket bounced back and forth keeps its original dates.
func StampTicketStatus(t *models.Ticket) {
	now := time.Now()
	switch t.Status {
	case models.TicketStatusInProgress:
		if t.StartedAt == nil {
			t.StartedAt = &now
		}
	case models.TicketStatusDone:
		if t.CompletedAt == nil {
			t.CompletedAt = &now
		}
	}
}
