package service

import (
	"context"
	"fmt"
	"strconv"

	invoicedomain "github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/internal/ticket/domain"
)

// RenderReceipt prints the current bill of a ticket. VAT is broken down per
// rate as included in the prices.
func (s *Service) RenderReceipt(ctx context.Context, ticketID int64, format string) (*invoicedomain.Document, error) {
	detail, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if len(detail.Lines) == 0 {
		return nil, domain.ErrTicketEmpty
	}

	drafts := domain.DraftLines(detail.Lines)
	view := invoicedomain.DocumentView{
		Kind:      invoicedomain.DocumentReceipt,
		ID:        detail.ID,
		Number:    "T-" + strconv.FormatInt(detail.ID, 36),
		IssuedAt:  s.clock.Now(),
		Reference: fmt.Sprintf("Mesa %d - %s", detail.TableID, detail.Location.Name()),
		Lines:     invoicedomain.ViewLines(drafts),
		Taxes:     invoicedomain.TaxBreakdown(drafts),
		Total:     detail.Total,
	}
	return s.invoices.RenderView(ctx, view, format)
}
