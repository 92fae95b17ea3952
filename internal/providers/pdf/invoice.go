package pdf

import (
	"context"
	"errors"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var ErrMissingNumber = errors.New("pdf: invoice number is required")

// InvoiceData is display-ready: every amount is already formatted.
type InvoiceData struct {
	ClinicName    string
	ClinicRUT     string
	ClinicAddress string
	ClinicEmail   string
	ClinicPhone   string

	DocumentLabel string
	InvoiceNumber string
	IssueDate     string
	DueDate       string
	Status        string

	ClientName    string
	ClientRUT     string
	ClientAddress string
	ClientEmail   string

	Items    []InvoiceItem
	Payments []PaymentLine

	Subtotal   string
	TaxLabel   string
	Tax        string
	Total      string
	PaidAmount string
	Balance    string
	Notes      string
}

type InvoiceItem struct {
	Description string
	Quantity    string
	UnitPrice   string
	Discount    string
	Subtotal    string
}

type PaymentLine struct {
	Date      string
	Method    string
	Reference string
	Amount    string
}

type MarotoRenderer struct{}

func New() *MarotoRenderer {
	return &MarotoRenderer{}
}

func (r *MarotoRenderer) RenderInvoice(ctx context.Context, invoice InvoiceData) ([]byte, error) {
	if invoice.InvoiceNumber == "" {
		return nil, ErrMissingNumber
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, invoice.ClinicName, props.Text{Size: 16, Style: fontstyle.Bold}),
		col.New(4).Add(
			text.New(invoice.DocumentLabel, props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right}),
			text.New("N° "+invoice.InvoiceNumber, props.Text{Top: 5, Size: 11, Align: align.Right}),
		),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("RUT "+invoice.ClinicRUT, props.Text{Size: 9}),
			text.New(invoice.ClinicAddress, props.Text{Top: 4, Size: 9}),
			text.New(invoice.ClinicEmail, props.Text{Top: 8, Size: 9}),
			text.New(invoice.ClinicPhone, props.Text{Top: 12, Size: 9}),
		),
		col.New(6).Add(
			text.New("Fecha de emisión: "+invoice.IssueDate, props.Text{Size: 9, Align: align.Right}),
			text.New("Vencimiento: "+invoice.DueDate, props.Text{Top: 4, Size: 9, Align: align.Right}),
			text.New("Estado: "+invoice.Status, props.Text{Top: 8, Size: 9, Align: align.Right}),
		),
	)

	m.AddRow(24,
		col.New(12).Add(
			text.New("Cliente", props.Text{Style: fontstyle.Bold, Size: 10}),
			text.New(invoice.ClientName, props.Text{Top: 5, Size: 9}),
			text.New("RUT "+invoice.ClientRUT, props.Text{Top: 9, Size: 9}),
			text.New(invoice.ClientAddress, props.Text{Top: 13, Size: 9}),
			text.New(invoice.ClientEmail, props.Text{Top: 17, Size: 9}),
		),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	m.AddRow(8,
		text.NewCol(4, "Descripción", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Cant.", header),
		text.NewCol(2, "Precio", header),
		text.NewCol(2, "Descuento", header),
		text.NewCol(2, "Subtotal", header),
	)
	m.AddRow(2, line.NewCol(12))

	cell := props.Text{Size: 9, Align: align.Right}
	for _, item := range invoice.Items {
		m.AddRow(8,
			text.NewCol(4, item.Description, props.Text{Size: 9}),
			text.NewCol(2, item.Quantity, cell),
			text.NewCol(2, item.UnitPrice, cell),
			text.NewCol(2, item.Discount, cell),
			text.NewCol(2, item.Subtotal, cell),
		)
	}
	m.AddRow(2, line.NewCol(12))

	totalRow(m, "Neto", invoice.Subtotal, false)
	totalRow(m, invoice.TaxLabel, invoice.Tax, false)
	totalRow(m, "Total", invoice.Total, true)
	totalRow(m, "Pagado", invoice.PaidAmount, false)
	totalRow(m, "Saldo", invoice.Balance, true)

	if len(invoice.Payments) > 0 {
		m.AddRow(10, text.NewCol(12, "Pagos", props.Text{Style: fontstyle.Bold, Size: 10, Top: 3}))
		for _, p := range invoice.Payments {
			m.AddRow(6,
				text.NewCol(3, p.Date, props.Text{Size: 9}),
				text.NewCol(3, p.Method, props.Text{Size: 9}),
				text.NewCol(4, p.Reference, props.Text{Size: 9}),
				text.NewCol(2, p.Amount, cell),
			)
		}
	}

	if invoice.Notes != "" {
		m.AddRow(16,
			col.New(12).Add(
				text.New("Observaciones", props.Text{Style: fontstyle.Bold, Size: 9, Top: 3}),
				text.New(invoice.Notes, props.Text{Size: 9, Top: 8}),
			),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func totalRow(m core.Maroto, label, value string, bold bool) {
	style := fontstyle.Normal
	if bold {
		style = fontstyle.Bold
	}
	m.AddRow(7,
		col.New(8),
		text.NewCol(2, label, props.Text{Size: 9, Style: style}),
		text.NewCol(2, value, props.Text{Size: 9, Style: style, Align: align.Right}),
	)
}
