// Package domain contains the immutable invoice records and the composer that
// builds them.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
)

// SourceType names the aggregate an invoice settled.
type SourceType string

const (
	SourceTicket      SourceType = "ticket"
	SourceReservation SourceType = "reservation"
)

// Invoice is append-only once created. Only Paid and IsDeleted ever change.
type Invoice struct {
	ID              int64                       `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	PaymentMethodID refdomain.PaymentMethod     `json:"payment_method_id" gorm:"not null;index"`
	PaymentMethod   *refdomain.PaymentMethodRow `json:"-" gorm:"foreignKey:PaymentMethodID"`
	SourceType      SourceType                  `json:"source_type" gorm:"type:varchar(16);not null"`
	Paid            bool                        `json:"paid" gorm:"not null;default:false"`
	IsDeleted       bool                        `json:"is_deleted" gorm:"not null;default:false"`
	CreatedAt       time.Time                   `json:"created_at" gorm:"not null;index"`
	UpdatedAt       time.Time                   `json:"updated_at" gorm:"not null"`
}

func (Invoice) TableName() string { return "simple_invoices" }

// SoldLine is a frozen price snapshot. Room charges have no product reference
// and a zero tax percentage.
type SoldLine struct {
	ID                int64           `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	InvoiceID         int64           `json:"invoice_id,string" gorm:"column:simple_invoice_id;not null;index"`
	Invoice           *Invoice        `json:"-" gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	OriginalProductID *int64          `json:"original_product_id,string,omitempty"`
	Name              string          `json:"name" gorm:"type:varchar(255);not null"`
	Quantity          int             `json:"quantity" gorm:"not null;default:1"`
	Price             decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	TaxPercentage     decimal.Decimal `json:"tax_percentage" gorm:"type:decimal(5,2);not null;default:0"`
	Position          int             `json:"position" gorm:"not null"`
}

func (SoldLine) TableName() string { return "sold_products" }

func (l SoldLine) Amount() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Detail is an invoice with its lines and computed totals.
type Detail struct {
	Invoice
	PaymentMethodCode string          `json:"payment_method"`
	Lines             []SoldLine      `json:"lines"`
	Total             decimal.Decimal `json:"total"`
	Taxes             []TaxLine       `json:"taxes"`
}
