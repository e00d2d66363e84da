package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleView(kind domain.DocumentKind) domain.DocumentView {
	return domain.DocumentView{
		Kind:     kind,
		ID:       9,
		Number:   "F2024-9",
		IssuedAt: time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC),
		Business: domain.BusinessInfo{Name: "Casa Pepe", TaxID: "B12345678", Currency: "EUR"},
		Lines: []domain.DocumentLine{{
			Name:          "Filete",
			Quantity:      2,
			UnitPrice:     decimal.RequireFromString("9.80"),
			Amount:        decimal.RequireFromString("19.60"),
			TaxPercentage: decimal.NewFromInt(10),
		}},
		Taxes: []domain.TaxLine{{
			Rate: decimal.NewFromInt(10),
			Base: decimal.RequireFromString("17.82"),
			Tax:  decimal.RequireFromString("1.78"),
		}},
		Total: decimal.RequireFromString("19.60"),
	}
}

func TestRenderInvoiceAndReceipt(t *testing.T) {
	r := New()
	assert.Equal(t, domain.FormatPDF, r.Format())

	for _, kind := range []domain.DocumentKind{domain.DocumentInvoice, domain.DocumentReceipt} {
		doc, err := r.Render(context.Background(), sampleView(kind))
		require.NoError(t, err)
		assert.Equal(t, ContentType, doc.ContentType)
		assert.True(t, bytes.HasPrefix(doc.Body, []byte("%PDF")))
	}

	doc, err := r.Render(context.Background(), sampleView(domain.DocumentInvoice))
	require.NoError(t, err)
	assert.Equal(t, "factura-f2024-9.pdf", doc.FileName)

	_, err = r.Render(context.Background(), sampleView("statement"))
	assert.Error(t, err)
}
