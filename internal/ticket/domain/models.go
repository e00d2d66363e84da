// Package domain holds the open table orders and their lines.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/innkeeper/internal/catalog/domain"
	invoicedomain "github.com/smallbiznis/innkeeper/internal/invoice/domain"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
)

type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusLocked Status = "LOCKED"
)

// Ticket is an order on one table. It holds the table until ClosedAt is set,
// which happens when its invoice is paid or deleted.
type Ticket struct {
	ID        int64                  `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	TableID   int                    `json:"table_id" gorm:"not null;uniqueIndex:ux_temporal_tickets_open_table,where:closed_at IS NULL;index:ix_temporal_tickets_table_location"`
	Location  refdomain.Location     `json:"-" gorm:"column:ticket_location;type:smallint;not null;uniqueIndex:ux_temporal_tickets_open_table,where:closed_at IS NULL;index:ix_temporal_tickets_table_location"`
	Status    Status                 `json:"status" gorm:"column:ticket_status;type:varchar(16);not null;default:OPEN"`
	InvoiceID *int64                 `json:"invoice_id,string,omitempty" gorm:"column:simple_invoice_id;index"`
	Invoice   *invoicedomain.Invoice `json:"-" gorm:"foreignKey:InvoiceID"`
	PrintedAt *time.Time             `json:"printed_at,omitempty"`
	ClosedAt  *time.Time             `json:"closed_at,omitempty"`
	CreatedAt time.Time              `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time              `json:"updated_at" gorm:"not null"`
}

func (Ticket) TableName() string { return "temporal_tickets" }

func (t Ticket) Locked() bool { return t.Status == StatusLocked }

// Line snapshots a product's name, price and tax rate when it is added.
type Line struct {
	ID            int64                  `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	TicketID      int64                  `json:"ticket_id,string" gorm:"column:temporal_ticket_id;not null;index"`
	Ticket        *Ticket                `json:"-" gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE"`
	ProductID     int64                  `json:"product_id,string" gorm:"column:original_product_id;not null;index"`
	Product       *catalogdomain.Product `json:"-" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Name          string                 `json:"name" gorm:"type:varchar(255);not null"`
	Quantity      int                    `json:"quantity" gorm:"not null;default:1;check:chk_temporal_products_quantity,quantity >= 1"`
	Price         decimal.Decimal        `json:"price" gorm:"type:decimal(12,2);not null"`
	TaxPercentage decimal.Decimal        `json:"tax_percentage" gorm:"type:decimal(5,2);not null;default:0"`
	CreatedAt     time.Time              `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time              `json:"updated_at" gorm:"not null"`
}

func (Line) TableName() string { return "temporal_products" }

func (l Line) Amount() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Detail is a ticket with its lines in insertion order.
type Detail struct {
	Ticket
	LocationCode string          `json:"location"`
	Lines        []Line          `json:"lines"`
	Total        decimal.Decimal `json:"total"`
}

// DraftLines converts the lines for the invoice composer.
func DraftLines(lines []Line) []invoicedomain.DraftLine {
	out := make([]invoicedomain.DraftLine, 0, len(lines))
	for _, l := range lines {
		productID := l.ProductID
		out = append(out, invoicedomain.DraftLine{
			ProductID:     &productID,
			Name:          l.Name,
			UnitPrice:     l.Price,
			Quantity:      l.Quantity,
			TaxPercentage: l.TaxPercentage,
		})
	}
	return out
}
