package render

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLRendererRendersReceipt(t *testing.T) {
	view := domain.DocumentView{
		Kind:     domain.DocumentReceipt,
		ID:       77,
		Number:   "T-77",
		IssuedAt: time.Date(2024, 6, 1, 21, 30, 0, 0, time.UTC),
		Business: domain.BusinessInfo{Name: "Casa <Pepe>", Currency: "EUR"},
		Lines: []domain.DocumentLine{{
			Name:      "Filete",
			Quantity:  2,
			UnitPrice: decimal.RequireFromString("9.80"),
			Amount:    decimal.RequireFromString("19.60"),
		}},
		Taxes: []domain.TaxLine{{
			Rate: decimal.NewFromInt(10),
			Base: decimal.RequireFromString("17.82"),
			Tax:  decimal.RequireFromString("1.78"),
		}},
		Total: decimal.RequireFromString("19.60"),
	}

	doc, err := NewHTMLRenderer().Render(context.Background(), view)
	require.NoError(t, err)
	assert.Equal(t, "cuenta-t-77.html", doc.FileName)
	assert.Equal(t, ContentTypeHTML, doc.ContentType)

	body := string(doc.Body)
	assert.Contains(t, body, "Casa &lt;Pepe&gt;")
	assert.Contains(t, body, "19.60 EUR")
	assert.Contains(t, body, "10%")
	assert.NotContains(t, body, "PAGADO")
}
