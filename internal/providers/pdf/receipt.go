package pdf

import (
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/internal/invoice/format"
)

const (
	rollWidth     = 80
	rollMinHeight = 160
	rollRowHeight = 5
)

// generateReceipt lays the table bill out on roll paper. The page grows with
// the number of lines so a receipt never breaks across pages.
func generateReceipt(view domain.DocumentView) ([]byte, error) {
	height := float64(rollMinHeight + rollRowHeight*(len(view.Lines)+len(view.Taxes)))
	cfg := config.NewBuilder().
		WithDimensions(rollWidth, height).
		WithLeftMargin(4).
		WithRightMargin(4).
		WithTopMargin(4).
		Build()

	m := maroto.New(cfg)
	addBusinessHeader(m, view.Business, 8)

	m.AddRow(6, text.NewCol(12, "Cuenta", props.Text{
		Size:  11,
		Style: fontstyle.Bold,
		Align: align.Center,
	}))
	if view.Reference != "" {
		m.AddRow(5, text.NewCol(12, view.Reference, props.Text{Size: 8, Align: align.Center}))
	}
	m.AddRow(5, text.NewCol(12, format.Date(view.IssuedAt), props.Text{Size: 7, Align: align.Center}))

	addLines(m, view, 7)
	addTaxes(m, view, 7)
	addTotal(m, view, 8)

	m.AddRow(8, text.NewCol(12, "IVA incluido. Gracias por su visita.", props.Text{
		Size:  7,
		Align: align.Center,
		Top:   3,
	}))

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
