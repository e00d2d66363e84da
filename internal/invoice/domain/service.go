package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/innkeeper/pkg/apperr"
	"github.com/smallbiznis/innkeeper/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListInvoicesRequest struct {
	pagination.Pagination
	From       *time.Time
	To         *time.Time
	Paid       *bool
	SourceType SourceType
}

type ListInvoicesResponse struct {
	pagination.PageInfo
	Invoices []Detail `json:"invoices"`
}

type Service interface {
	// Settle freezes the source's billable lines into a new invoice and runs the
	// source's transition, all in one transaction.
	Settle(ctx context.Context, src BillableSource, req SettleRequest) (*Detail, error)
	Get(ctx context.Context, id int64) (*Detail, error)
	List(ctx context.Context, req ListInvoicesRequest) (ListInvoicesResponse, error)
	MarkPaid(ctx context.Context, id int64) (*Detail, error)
	Delete(ctx context.Context, id int64) error
	Render(ctx context.Context, id int64, format string) (*Document, error)
	// RenderView renders a snapshot that is not a stored invoice.
	RenderView(ctx context.Context, view DocumentView, format string) (*Document, error)
}

type ListFilter struct {
	From       *time.Time
	To         *time.Time
	Paid       *bool
	SourceType SourceType
	CursorID   int64
	CursorAt   time.Time
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice, lines []SoldLine) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Invoice, error)
	LockByID(ctx context.Context, db *gorm.DB, id int64) (*Invoice, error)
	Lines(ctx context.Context, db *gorm.DB, invoiceIDs ...int64) (map[int64][]SoldLine, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Invoice, error)
	MarkPaid(ctx context.Context, db *gorm.DB, id int64, at time.Time) error
	SoftDelete(ctx context.Context, db *gorm.DB, id int64, at time.Time) (bool, error)
}

var (
	ErrInvalidPaymentMethod = apperr.New(apperr.ErrValidation, "invalid_payment_method", "unknown payment method")
	ErrInvalidQuantity      = apperr.New(apperr.ErrValidation, "invalid_quantity", "quantity must be at least 1")
	ErrInvalidLine          = apperr.New(apperr.ErrValidation, "invalid_line", "billable line is malformed")
	ErrInvalidFormat        = apperr.New(apperr.ErrValidation, "invalid_document_format", "unsupported document format")
	ErrInvalidPageToken     = apperr.New(apperr.ErrValidation, "invalid_page_token", "invalid page token")
	ErrInvalidTimeRange     = apperr.New(apperr.ErrValidation, "invalid_time_range", "start must not be after end")
	ErrNothingToBill        = apperr.New(apperr.ErrInvalidState, "nothing_to_bill", "there are no lines to bill")
	ErrInvoiceNotFound      = apperr.New(apperr.ErrNotFound, "invoice_not_found", "invoice not found")
	ErrRenderBusy           = apperr.New(apperr.ErrConflict, "document_render_in_progress", "this document is already being printed")
	ErrRenderThrottled      = apperr.New(apperr.ErrConflict, "document_render_throttled", "too many documents printed from this terminal, try again shortly")
)
