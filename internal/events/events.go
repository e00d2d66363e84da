// Package events publishes domain events after a transition has committed.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	obscontext "github.com/smallbiznis/innkeeper/internal/observability/context"
)

const (
	TicketOpened          = "ticket.opened"
	TicketSettled         = "ticket.settled"
	TicketAbandoned       = "ticket.abandoned"
	ReservationCreated    = "reservation.created"
	ReservationOccupied   = "reservation.occupied"
	ReservationCheckedOut = "reservation.checked_out"
	ReservationCancelled  = "reservation.cancelled"
	InvoicePaid           = "invoice.paid"
	InvoiceDeleted        = "invoice.deleted"
)

type Event struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	OccurredAt    time.Time      `json:"occurred_at"`
	TerminalID    string         `json:"terminal_id,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Data          map[string]any `json:"data"`
}

// New stamps an event with a fresh id and the request's terminal and
// correlation ids.
func New(ctx context.Context, eventType string, at time.Time, data map[string]any) Event {
	return Event{
		ID:            ulid.Make().String(),
		Type:          eventType,
		OccurredAt:    at.UTC(),
		TerminalID:    obscontext.TerminalIDFromContext(ctx),
		CorrelationID: obscontext.CorrelationIDFromContext(ctx),
		Data:          data,
	}
}

// Publisher delivers events at most once. A failed publish never undoes the
// committed transition; callers log and move on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, event)
	return nil
}

// Types lists the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Type)
	}
	return out
}
