package pdf

import (
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/internal/invoice/format"
)

func generateInvoice(view domain.DocumentView) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)
	addBusinessHeader(m, view.Business, 10)

	m.AddRow(10,
		text.NewCol(6, "Factura", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(6, view.Number, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
			Top:   3,
		}),
	)

	meta := col.New(6).Add(
		text.New("Fecha: "+format.Date(view.IssuedAt), props.Text{Top: 0, Size: 9}),
	)
	if view.PaymentMethod != "" {
		meta.Add(text.New("Forma de pago: "+view.PaymentMethod, props.Text{Top: 4, Size: 9}))
	}
	status := "Pendiente de pago"
	if view.Paid {
		status = "Pagada"
	}
	m.AddRow(14, meta, text.NewCol(6, status, props.Text{Size: 9, Align: align.Right}))

	addLines(m, view, 9)
	addTaxes(m, view, 9)
	addTotal(m, view, 10)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
