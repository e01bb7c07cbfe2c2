// Package events publishes invoice lifecycle notifications.
//
// Dispatch happens after the owning transaction commits. Failures are the
// dispatcher's problem: callers log them and move on.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/diewo77/invoice-tracker/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Name string

const (
	InvoiceCreated Name = "invoice.created"
	InvoiceUpdated Name = "invoice.updated"
	InvoiceDeleted Name = "invoice.deleted"
)

type Event struct {
	ID         uuid.UUID       `json:"event_id"`
	Name       Name            `json:"event_type"`
	OccurredAt time.Time       `json:"timestamp"`
	Invoice    *models.Invoice `json:"payload"`
}

func New(name Name, inv *models.Invoice, at time.Time) Event {
	return Event{ID: uuid.New(), Name: name, OccurredAt: at.UTC(), Invoice: inv}
}

// AgencyID returns the issuing agency of the payload, or 0 without one.
func (e Event) AgencyID() uint {
	if e.Invoice == nil {
		return 0
	}
	return e.Invoice.AgencyID
}

type Dispatcher interface {
	Dispatch(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Dispatch(context.Context, Event) error { return nil }

// LogDispatcher writes one info line per event.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(_ context.Context, e Event) error {
	fields := []zap.Field{
		zap.String("event_id", e.ID.String()),
		zap.String("event", string(e.Name)),
		zap.Time("occurred_at", e.OccurredAt),
	}
	if e.Invoice != nil {
		fields = append(fields,
			zap.Uint("invoice_id", e.Invoice.ID),
			zap.Uint("agency_id", e.Invoice.AgencyID),
			zap.String("invoice_number", e.Invoice.InvoiceNumber),
		)
	}
	d.logger.Info("invoice event", fields...)
	return nil
}

// Multi fans an event out to every dispatcher and joins their errors.
type Multi []Dispatcher

func (m Multi) Dispatch(ctx context.Context, e Event) error {
	var errs []error
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := d.Dispatch(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
