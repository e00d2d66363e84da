package render

import (
	"bytes"
	"context"
	"html/template"
	"strconv"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/internal/invoice/format"
)

const documentHTMLTemplate = `<!doctype html>
<html lang="es">
<head>
  <meta charset="utf-8" />
  <title>{{title .Kind}} {{.Number}}</title>
  <style>
    * { box-sizing: border-box; }
    body {
      margin: 0;
      padding: 24px;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      color: #1a1f36;
      background: #f7f9fc;
    }
    .card {
      background: #ffffff;
      max-width: 420px;
      margin: 0 auto;
      padding: 32px;
      border-radius: 4px;
    }
    .business { text-align: center; margin-bottom: 24px; }
    .business h1 { margin: 0; font-size: 20px; }
    .muted { font-size: 12px; color: #697386; }
    .meta { display: flex; justify-content: space-between; margin-bottom: 16px; font-size: 13px; }
    table { width: 100%; border-collapse: collapse; margin-bottom: 16px; }
    th {
      text-align: left;
      font-size: 11px;
      text-transform: uppercase;
      color: #8792a2;
      border-bottom: 1px solid #e3e8ee;
      padding: 6px 0;
    }
    td { padding: 8px 0; border-bottom: 1px solid #e3e8ee; font-size: 13px; }
    .right { text-align: right; }
    .total { font-size: 18px; font-weight: 700; text-align: right; margin-top: 12px; }
    .stamp { margin-top: 16px; text-align: center; font-weight: 600; }
  </style>
</head>
<body>
  <div class="card">
    <div class="business">
      <h1>{{.Business.Name}}</h1>
      {{if .Business.TaxID}}<div class="muted">{{.Business.TaxID}}</div>{{end}}
      {{if .Business.Address}}<div class="muted">{{.Business.Address}}</div>{{end}}
      {{if .Business.Phone}}<div class="muted">{{.Business.Phone}}</div>{{end}}
    </div>

    <div class="meta">
      <div>
        <strong>{{title .Kind}}</strong> {{.Number}}
        {{if .Reference}}<div class="muted">{{.Reference}}</div>{{end}}
      </div>
      <div class="right">{{date .IssuedAt}}</div>
    </div>

    <table>
      <thead>
        <tr>
          <th>Concepto</th>
          <th class="right">Ud.</th>
          <th class="right">Precio</th>
          <th class="right">Importe</th>
        </tr>
      </thead>
      <tbody>
        {{range .Lines}}
        <tr>
          <td>{{.Name}}</td>
          <td class="right">{{.Quantity}}</td>
          <td class="right">{{money .UnitPrice}}</td>
          <td class="right">{{money .Amount}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>

    {{if .Taxes}}
    <table>
      <thead>
        <tr>
          <th>IVA</th>
          <th class="right">Base</th>
          <th class="right">Cuota</th>
        </tr>
      </thead>
      <tbody>
        {{range .Taxes}}
        <tr>
          <td>{{percent .Rate}}</td>
          <td class="right">{{money .Base}}</td>
          <td class="right">{{money .Tax}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}

    <div class="total">Total {{money .Total}}</div>
    {{if .PaymentMethod}}<div class="muted right">{{.PaymentMethod}}</div>{{end}}
    {{if .Paid}}<div class="stamp">PAGADO</div>{{end}}
  </div>
</body>
</html>
`

const ContentTypeHTML = "text/html; charset=utf-8"

type HTMLRenderer struct {
	tpl *template.Template
}

func NewHTMLRenderer() *HTMLRenderer {
	tpl := template.New("document").Funcs(funcsFor(""))
	return &HTMLRenderer{tpl: template.Must(tpl.Parse(documentHTMLTemplate))}
}

func funcsFor(currency string) template.FuncMap {
	return template.FuncMap{
		"money":   func(v decimal.Decimal) string { return format.Money(v, currency) },
		"percent": format.Percent,
		"date":    format.Date,
		"title":   Title,
	}
}

func (r *HTMLRenderer) Format() string { return domain.FormatHTML }

func (r *HTMLRenderer) Render(ctx context.Context, view domain.DocumentView) (*domain.Document, error) {
	tpl, err := r.tpl.Clone()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tpl.Funcs(funcsFor(view.Business.Currency)).Execute(&buf, view); err != nil {
		return nil, err
	}
	return &domain.Document{
		FileName:    FileName(view, domain.FormatHTML),
		ContentType: ContentTypeHTML,
		Body:        buf.Bytes(),
	}, nil
}

// Title is the printed heading of a document kind.
func Title(kind domain.DocumentKind) string {
	if kind == domain.DocumentReceipt {
		return "Cuenta"
	}
	return "Factura"
}

// FileName builds a slugged download name, e.g. factura-f2024-1a.pdf.
func FileName(view domain.DocumentView, ext string) string {
	number := view.Number
	if number == "" {
		number = strconv.FormatInt(view.ID, 10)
	}
	return slug.Make(Title(view.Kind)+" "+number) + "." + ext
}
