package report

import (
	"strconv"

	"github.com/samber/lo"
	expensedomain "github.com/smallbiznis/kinesio/internal/expense/domain"
	invoicedomain "github.com/smallbiznis/kinesio/internal/invoice/domain"
	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary   = "Resumen"
	sheetSales     = "Ventas"
	sheetPurchases = "Compras"

	// Built-in excel format "#,##0".
	numFmtThousands = 3
)

// ExportExcel writes three sheets: the summary, the sales documents and the purchases.
func ExportExcel(d Detail) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DCE6F1"}},
	})
	if err != nil {
		return nil, err
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: numFmtThousands})
	if err != nil {
		return nil, err
	}

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, err
	}
	s := d.Summary
	summaryRows := [][]any{
		{"Período", s.Month},
		{"Documentos de venta", s.SalesCount},
		{"Notas de crédito", s.CreditNotesCount},
		{"Ventas netas", s.SalesNet},
		{"IVA débito", s.Debit},
		{"Documentos de compra", s.PurchasesCount},
		{"Compras netas", s.PurchasesNet},
		{"IVA crédito", s.Credit},
		{"IVA neto", s.NetIVA},
		{"Estado", string(s.Status)},
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(sheetSummary, "A1", "A10", header); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetSummary, "B4", "B9", amount); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetSummary, "A", "B", 24); err != nil {
		return nil, err
	}

	sales := lo.Map(d.Invoices, func(inv invoicedomain.Invoice, _ int) []any {
		return []any{
			inv.Number,
			inv.DocumentType.Label(),
			inv.IssuedAt.Format("02-01-2006"),
			lo.FromPtr(inv.ClientName),
			lo.FromPtr(inv.ClientRUT),
			signed(inv.DocumentType, inv.Subtotal),
			signed(inv.DocumentType, inv.Tax),
			signed(inv.DocumentType, inv.Total),
			string(inv.PaymentStatus),
		}
	})
	if err := writeTable(f, sheetSales, header, amount,
		[]any{"Número", "Tipo", "Fecha", "Cliente", "RUT", "Neto", "IVA", "Total", "Estado"},
		sales, "F", "H"); err != nil {
		return nil, err
	}

	purchases := lo.Map(d.Expenses, func(e expensedomain.Expense, _ int) []any {
		return []any{
			lo.FromPtr(e.DocumentNumber),
			e.SupplierName,
			lo.FromPtr(e.SupplierRUT),
			e.Category,
			e.IssuedAt.Format("02-01-2006"),
			e.NetAmount,
			e.TaxAmount,
			e.TotalAmount,
		}
	})
	if err := writeTable(f, sheetPurchases, header, amount,
		[]any{"Documento", "Proveedor", "RUT", "Categoría", "Fecha", "Neto", "IVA", "Total"},
		purchases, "F", "H"); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTable(f *excelize.File, sheet string, header, amount int, titles []any, rows [][]any, amountFrom, amountTo string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &titles); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(titles), 1)
	if err := f.SetCellStyle(sheet, "A1", last, header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		if err := f.SetCellStyle(sheet, amountFrom+"2", amountTo+strconv.Itoa(len(rows)+1), amount); err != nil {
			return err
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(titles))
	return f.SetColWidth(sheet, "A", lastCol, 16)
}

// Credit notes reduce the month, so the sales sheet shows them negative.
func signed(dt invoicedomain.DocumentType, v int64) int64 {
	if dt == invoicedomain.DocumentNotaCredito {
		return -v
	}
	return v
}
