package services

import (
	"sync"
	"time"

	"github.com/teampulse-io/teampulse/backend/internal/models"
)

// Automation event kinds
const (
	EventCycleStarted       = "cycle_started"
	EventActionProposed     = "action_proposed"
	EventActionAutoApproved = "action_auto_approved"
	EventActionResolved     = "action_resolved"
	EventCycleCompleted     = "cycle_completed"
	EventCycleFailed        = "cycle_failed"
)

// AutomationEvent is published on run and action lifecycle changes.
// Run is set for cycle events, Action for action events.
type AutomationEvent struct {
	Kind      string                   `json:"kind"`
	Timestamp time.Time                `json:"timestamp"`
	Run       *models.AutomationRun    `json:"run,omitempty"`
	Action    *models.AutomationAction `json:"action,omitempty"`
}

// EventHub is an in-process publish/subscribe hub for automation events.
// Observers (the SSE bridge, notification fan-out) subscribe without
// coupling to the engine's internals.
type EventHub struct {
	clients map[string]chan AutomationEvent
	mu      sync.RWMutex
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[string]chan AutomationEvent),
	}
}

// Subscribe registers a client and returns its event channel. The
// channel is buffered so a slow consumer never blocks the engine.
func (h *EventHub) Subscribe(clientID string) <-chan AutomationEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan AutomationEvent, 100)
	h.clients[clientID] = ch
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (h *EventHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
	}
}

// Publish fans the event out to all subscribers. Sends are non-blocking;
// events are dropped for clients whose buffer is full.
func (h *EventHub) Publish(event AutomationEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		select {
		case ch <- event:
		default:
			// Client is slow, skip this event
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
