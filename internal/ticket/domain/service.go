package domain

import (
	"context"
	"time"

	invoicedomain "github.com/smallbiznis/innkeeper/internal/invoice/domain"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
	"github.com/smallbiznis/innkeeper/pkg/apperr"
	"gorm.io/gorm"
)

type Service interface {
	Open(ctx context.Context, req OpenTicketRequest) (*Detail, error)
	AddLine(ctx context.Context, ticketID int64, req AddLineRequest) (*Line, error)
	UpdateLineQuantity(ctx context.Context, ticketID, lineID int64, quantity int) (*Line, error)
	RemoveLine(ctx context.Context, ticketID, lineID int64) error
	// LockAndSettle freezes the ticket into an invoice. The ticket keeps its table
	// until the invoice is paid.
	LockAndSettle(ctx context.Context, ticketID int64, req SettleTicketRequest) (*invoicedomain.Detail, error)
	// Abandon removes an OPEN ticket. A ticket with lines needs discard.
	Abandon(ctx context.Context, ticketID int64, discard bool) error
	MarkPrinted(ctx context.Context, ticketID int64) (*Detail, error)
	RenderReceipt(ctx context.Context, ticketID int64, format string) (*invoicedomain.Document, error)
	Get(ctx context.Context, ticketID int64) (*Detail, error)
	ListOpen(ctx context.Context, req ListOpenRequest) ([]Detail, error)
}

type OpenTicketRequest struct {
	TableID  int    `json:"table_id"`
	Location string `json:"location"`
}

type AddLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	// Tier overrides the price tier derived from the ticket's location.
	Tier string `json:"tier"`
}

type SettleTicketRequest struct {
	PaymentMethod string `json:"payment_method"`
	MarkPaid      bool   `json:"mark_paid"`
}

type ListOpenRequest struct {
	Location string `form:"location"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, ticket *Ticket) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Ticket, error)
	LockByID(ctx context.Context, db *gorm.DB, id int64) (*Ticket, error)
	ListUnclosed(ctx context.Context, db *gorm.DB, location *refdomain.Location) ([]Ticket, error)
	Lock(ctx context.Context, db *gorm.DB, id, invoiceID int64, at time.Time) (bool, error)
	MarkPrinted(ctx context.Context, db *gorm.DB, id int64, at time.Time) error
	CloseByInvoice(ctx context.Context, db *gorm.DB, invoiceID int64, at time.Time) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id int64) error

	InsertLine(ctx context.Context, db *gorm.DB, line *Line) error
	FindLine(ctx context.Context, db *gorm.DB, id int64) (*Line, error)
	UpdateLineQuantity(ctx context.Context, db *gorm.DB, id int64, quantity int, at time.Time) error
	DeleteLine(ctx context.Context, db *gorm.DB, id int64) error
	Lines(ctx context.Context, db *gorm.DB, ticketIDs ...int64) (map[int64][]Line, error)
	Touch(ctx context.Context, db *gorm.DB, id int64, at time.Time) error
}

var (
	ErrInvalidTable    = apperr.New(apperr.ErrValidation, "invalid_table", "table id must be positive")
	ErrInvalidQuantity = apperr.New(apperr.ErrValidation, "invalid_quantity", "quantity must be at least 1")
	ErrInvalidID       = apperr.New(apperr.ErrValidation, "invalid_id", "invalid identifier")
	ErrTicketNotFound  = apperr.New(apperr.ErrNotFound, "ticket_not_found", "ticket not found")
	ErrLineNotFound    = apperr.New(apperr.ErrNotFound, "ticket_line_not_found", "ticket line not found")
	ErrProductNotFound = apperr.New(apperr.ErrNotFound, "product_not_found", "product not found")
	ErrTicketLocked    = apperr.New(apperr.ErrInvalidState, "ticket_locked", "the ticket is already settled")
	ErrTicketHasLines  = apperr.New(apperr.ErrInvalidState, "ticket_has_lines", "the ticket has lines; discard them explicitly to abandon it")
	ErrTicketEmpty     = apperr.New(apperr.ErrInvalidState, "ticket_empty", "the ticket has no lines to settle")
)
