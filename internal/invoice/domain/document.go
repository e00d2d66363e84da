package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type DocumentKind string

const (
	DocumentInvoice DocumentKind = "invoice"
	// DocumentReceipt is the pro-forma bill printed for a table before payment.
	DocumentReceipt DocumentKind = "receipt"
)

const (
	FormatPDF  = "pdf"
	FormatHTML = "html"
)

type BusinessInfo struct {
	Name     string
	TaxID    string
	Address  string
	Phone    string
	Currency string
}

type DocumentLine struct {
	Name          string
	Quantity      int
	UnitPrice     decimal.Decimal
	Amount        decimal.Decimal
	TaxPercentage decimal.Decimal
}

// DocumentView is the immutable snapshot handed to a renderer.
type DocumentView struct {
	Kind          DocumentKind
	ID            int64
	Number        string
	IssuedAt      time.Time
	Business      BusinessInfo
	Reference     string
	PaymentMethod string
	Paid          bool
	Lines         []DocumentLine
	Taxes         []TaxLine
	Total         decimal.Decimal
}

type Document struct {
	FileName    string
	ContentType string
	Body        []byte
}

type Renderer interface {
	Format() string
	Render(ctx context.Context, view DocumentView) (*Document, error)
}

// ViewLines converts draft lines for display.
func ViewLines(lines []DraftLine) []DocumentLine {
	out := make([]DocumentLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, DocumentLine{
			Name:          l.Name,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			Amount:        l.Amount(),
			TaxPercentage: l.TaxPercentage,
		})
	}
	return out
}
