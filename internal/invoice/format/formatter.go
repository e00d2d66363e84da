package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	idPadRe = regexp.MustCompile(`\{ID(\d+)\}`)
)

const DefaultDocumentNumberTemplate = "F{YYYY}-{ID36}"

// DocumentNumber formats a human-readable document number from a template,
// the issue time and the document id.
//
// Tokens: {YYYY} {YY} {MM} {DD} {ID} {ID36} and {IDn} for a zero padded id.
func DocumentNumber(template string, issuedAt time.Time, id int64) (string, error) {
	if template == "" {
		template = DefaultDocumentNumberTemplate
	}
	if id <= 0 {
		return "", fmt.Errorf("invalid document id: %d", id)
	}

	out := template
	out = strings.ReplaceAll(out, "{YYYY}", issuedAt.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", issuedAt.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", issuedAt.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", issuedAt.Format("02"))
	out = strings.ReplaceAll(out, "{ID36}", strings.ToUpper(strconv.FormatInt(id, 36)))
	out = strings.ReplaceAll(out, "{ID}", strconv.FormatInt(id, 10))

	out = idPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := idPadRe.FindStringSubmatch(m)
		if len(match) != 2 {
			return m
		}
		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}
		return fmt.Sprintf("%0*d", width, id)
	})

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in document number: %s", out)
	}
	return out, nil
}

// Money renders an amount with two decimals followed by the currency code.
func Money(amount decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "EUR"
	}
	return amount.StringFixed(2) + " " + currency
}

// Percent renders a tax rate without trailing zeros.
func Percent(rate decimal.Decimal) string {
	return rate.String() + "%"
}

func Date(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Format("02/01/2006 15:04")
}
