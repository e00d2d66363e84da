package service

import (
	"context"

	"github.com/smallbiznis/innkeeper/internal/clock"
	invoicedomain "github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/internal/ticket/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CloseHook frees the table of a settled ticket once its invoice is paid or
// deleted.
type CloseHook struct {
	repo  domain.Repository
	clock clock.Clock
	log   *zap.Logger
}

func NewCloseHook(repo domain.Repository, clk clock.Clock, log *zap.Logger) *CloseHook {
	return &CloseHook{repo: repo, clock: clk, log: log.Named("ticket.close_hook")}
}

func (h *CloseHook) InvoiceClosed(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	if invoice.SourceType != invoicedomain.SourceTicket {
		return nil
	}
	closed, err := h.repo.CloseByInvoice(ctx, tx, invoice.ID, h.clock.Now())
	if err != nil {
		return err
	}
	if closed > 0 {
		h.log.Debug("table released", zap.Int64("invoice_id", invoice.ID))
	}
	return nil
}
