package domain

import (
	"sort"

	"github.com/shopspring/decimal"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
)

var hundred = decimal.NewFromInt(100)

// DraftLine is one already-snapshotted billable line.
type DraftLine struct {
	ProductID     *int64
	Name          string
	UnitPrice     decimal.Decimal
	Quantity      int
	TaxPercentage decimal.Decimal
}

func (l DraftLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Draft struct {
	PaymentMethod refdomain.PaymentMethod
	Lines         []DraftLine
	Total         decimal.Decimal
	Taxes         []TaxLine
}

// TaxLine groups the VAT contained in the lines billed at one rate. Prices are
// tax inclusive, so Base + Tax equals Gross.
type TaxLine struct {
	Rate  decimal.Decimal `json:"rate"`
	Base  decimal.Decimal `json:"base"`
	Tax   decimal.Decimal `json:"tax"`
	Gross decimal.Decimal `json:"gross"`
}

// Compose validates snapshotted lines and computes the invoice totals. It keeps
// the input order and never consults catalog state.
func Compose(method refdomain.PaymentMethod, lines []DraftLine) (Draft, error) {
	if !method.Valid() {
		return Draft{}, ErrInvalidPaymentMethod
	}
	if len(lines) == 0 {
		return Draft{}, ErrNothingToBill
	}

	total := decimal.Zero
	out := make([]DraftLine, 0, len(lines))
	for _, line := range lines {
		if line.Name == "" {
			return Draft{}, ErrInvalidLine
		}
		if line.Quantity < 1 {
			return Draft{}, ErrInvalidQuantity
		}
		if line.UnitPrice.IsNegative() {
			return Draft{}, ErrInvalidLine
		}
		if line.TaxPercentage.IsNegative() || line.TaxPercentage.GreaterThan(hundred) {
			return Draft{}, ErrInvalidLine
		}
		total = total.Add(line.Amount())
		out = append(out, line)
	}

	return Draft{
		PaymentMethod: method,
		Lines:         out,
		Total:         total,
		Taxes:         TaxBreakdown(out),
	}, nil
}

// TaxBreakdown extracts the included VAT per rate: tax = gross * pct / (100 + pct),
// rounded to cents once per rate. Rates are returned in ascending order.
func TaxBreakdown(lines []DraftLine) []TaxLine {
	gross := map[string]decimal.Decimal{}
	rates := map[string]decimal.Decimal{}
	for _, line := range lines {
		key := line.TaxPercentage.String()
		rates[key] = line.TaxPercentage
		gross[key] = gross[key].Add(line.Amount())
	}

	out := make([]TaxLine, 0, len(rates))
	for key, rate := range rates {
		g := gross[key]
		tax := g.Mul(rate).Div(hundred.Add(rate)).Round(2)
		out = append(out, TaxLine{
			Rate:  rate,
			Base:  g.Sub(tax),
			Tax:   tax,
			Gross: g,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rate.LessThan(out[j].Rate) })
	return out
}

// DraftLinesOf turns stored lines back into composer input.
func DraftLinesOf(lines []SoldLine) []DraftLine {
	out := make([]DraftLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, DraftLine{
			ProductID:     l.OriginalProductID,
			Name:          l.Name,
			UnitPrice:     l.Price,
			Quantity:      l.Quantity,
			TaxPercentage: l.TaxPercentage,
		})
	}
	return out
}
