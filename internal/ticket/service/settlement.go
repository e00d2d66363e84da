package service

import (
	"context"

	auditdomain "github.com/smallbiznis/innkeeper/internal/audit/domain"
	invoicedomain "github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/internal/ticket/domain"
	"gorm.io/gorm"
)

// settlement adapts one ticket to the invoice settlement flow.
type settlement struct {
	svc      *Service
	ticketID int64
	ticket   *domain.Ticket
}

func (t *settlement) SourceType() invoicedomain.SourceType { return invoicedomain.SourceTicket }

func (t *settlement) SourceID() int64 { return t.ticketID }

func (t *settlement) LockForSettlement(ctx context.Context, tx *gorm.DB) error {
	ticket, err := t.svc.lockOpen(ctx, tx, t.ticketID)
	if err != nil {
		return err
	}
	t.ticket = ticket
	return nil
}

func (t *settlement) BillableLines(ctx context.Context, tx *gorm.DB) ([]invoicedomain.DraftLine, error) {
	lines, err := t.svc.repo.Lines(ctx, tx, t.ticketID)
	if err != nil {
		return nil, err
	}
	if len(lines[t.ticketID]) == 0 {
		return nil, domain.ErrTicketEmpty
	}
	return domain.DraftLines(lines[t.ticketID]), nil
}

func (t *settlement) MarkSettled(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	locked, err := t.svc.repo.Lock(ctx, tx, t.ticketID, invoice.ID, invoice.CreatedAt)
	if err != nil {
		return err
	}
	if !locked {
		return domain.ErrTicketLocked
	}
	t.ticket.Status = domain.StatusLocked
	t.ticket.InvoiceID = &invoice.ID
	return t.svc.audit.Record(ctx, tx, "ticket.settled", auditdomain.TargetTicket, t.ticketID, map[string]any{
		"invoice_id": invoice.ID,
		"table_id":   t.ticket.TableID,
	})
}
