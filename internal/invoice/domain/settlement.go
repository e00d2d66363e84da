package domain

import (
	"context"

	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
	"gorm.io/gorm"
)

// BillableSource is an aggregate that can be frozen into an invoice. Every
// method runs on the settlement transaction.
type BillableSource interface {
	SourceType() SourceType
	SourceID() int64
	// LockForSettlement row-locks the aggregate and fails unless it is in a
	// settleable state.
	LockForSettlement(ctx context.Context, tx *gorm.DB) error
	// BillableLines returns the current snapshotted lines in billing order.
	BillableLines(ctx context.Context, tx *gorm.DB) ([]DraftLine, error)
	// MarkSettled performs the aggregate's irreversible transition and links it
	// to the new invoice.
	MarkSettled(ctx context.Context, tx *gorm.DB, invoice *Invoice) error
}

type SettleRequest struct {
	PaymentMethod refdomain.PaymentMethod
	// MarkPaid records the payment in the same transaction.
	MarkPaid bool
}

// CloseHook runs inside the transaction that marks an invoice paid or deletes
// it, letting the settled aggregate release what it still holds.
type CloseHook interface {
	InvoiceClosed(ctx context.Context, tx *gorm.DB, invoice *Invoice) error
}
