package pdf

import (
	"context"
	"fmt"
	"strconv"

	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/internal/invoice/format"
	"github.com/smallbiznis/innkeeper/internal/invoice/render"
)

const ContentType = "application/pdf"

// Renderer prints invoices on A4 and table receipts on 80mm roll paper.
type Renderer struct{}

func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Format() string { return domain.FormatPDF }

func (r *Renderer) Render(ctx context.Context, view domain.DocumentView) (*domain.Document, error) {
	var (
		body []byte
		err  error
	)
	switch view.Kind {
	case domain.DocumentInvoice:
		body, err = generateInvoice(view)
	case domain.DocumentReceipt:
		body, err = generateReceipt(view)
	default:
		return nil, fmt.Errorf("pdf: unsupported document kind %q", view.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("pdf: generate %s: %w", view.Kind, err)
	}
	return &domain.Document{
		FileName:    render.FileName(view, domain.FormatPDF),
		ContentType: ContentType,
		Body:        body,
	}, nil
}

func addBusinessHeader(m core.Maroto, business domain.BusinessInfo, size float64) {
	m.AddRow(8, text.NewCol(12, business.Name, props.Text{
		Size:  size + 4,
		Style: fontstyle.Bold,
		Align: align.Center,
	}))
	for _, value := range []string{business.TaxID, business.Address, business.Phone} {
		if value == "" {
			continue
		}
		m.AddRow(4, text.NewCol(12, value, props.Text{Size: size - 1, Align: align.Center}))
	}
	m.AddRow(4, col.New(12))
}

func addLines(m core.Maroto, view domain.DocumentView, size float64) {
	head := props.Text{Style: fontstyle.Bold, Size: size}
	right := props.Text{Style: fontstyle.Bold, Size: size, Align: align.Right}
	m.AddRow(6,
		text.NewCol(6, "Concepto", head),
		text.NewCol(1, "Ud.", right),
		text.NewCol(2, "Precio", right),
		text.NewCol(3, "Importe", right),
	)
	m.AddRow(1, line.NewCol(12))

	cell := props.Text{Size: size}
	cellRight := props.Text{Size: size, Align: align.Right}
	for _, l := range view.Lines {
		m.AddRow(5,
			text.NewCol(6, l.Name, cell),
			text.NewCol(1, strconv.Itoa(l.Quantity), cellRight),
			text.NewCol(2, l.UnitPrice.StringFixed(2), cellRight),
			text.NewCol(3, format.Money(l.Amount, view.Business.Currency), cellRight),
		)
	}
	m.AddRow(1, line.NewCol(12))
}

func addTaxes(m core.Maroto, view domain.DocumentView, size float64) {
	if len(view.Taxes) == 0 {
		return
	}
	right := props.Text{Size: size, Align: align.Right}
	m.AddRow(5,
		text.NewCol(4, "IVA", props.Text{Size: size, Style: fontstyle.Bold}),
		text.NewCol(4, "Base", props.Text{Size: size, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(4, "Cuota", props.Text{Size: size, Style: fontstyle.Bold, Align: align.Right}),
	)
	for _, t := range view.Taxes {
		m.AddRow(5,
			text.NewCol(4, format.Percent(t.Rate), props.Text{Size: size}),
			text.NewCol(4, format.Money(t.Base, view.Business.Currency), right),
			text.NewCol(4, format.Money(t.Tax, view.Business.Currency), right),
		)
	}
}

func addTotal(m core.Maroto, view domain.DocumentView, size float64) {
	m.AddRow(8,
		text.NewCol(6, "Total", props.Text{Size: size + 2, Style: fontstyle.Bold, Top: 2}),
		text.NewCol(6, format.Money(view.Total, view.Business.Currency), props.Text{
			Size:  size + 2,
			Style: fontstyle.Bold,
			Align: align.Right,
			Top:   2,
		}),
	)
}
