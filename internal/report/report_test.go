package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kinesio/internal/audit/audittest"
	auditdomain "github.com/smallbiznis/kinesio/internal/audit/domain"
	"github.com/smallbiznis/kinesio/internal/clock"
	"github.com/smallbiznis/kinesio/internal/config"
	expensedomain "github.com/smallbiznis/kinesio/internal/expense/domain"
	expenserepo "github.com/smallbiznis/kinesio/internal/expense/repository"
	expenseservice "github.com/smallbiznis/kinesio/internal/expense/service"
	invoicedomain "github.com/smallbiznis/kinesio/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/kinesio/internal/payment/domain"
	"github.com/smallbiznis/kinesio/internal/tax"
	"github.com/smallbiznis/kinesio/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	svc      *Service
	expenses expensedomain.Service
	audit    *audittest.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t,
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&paymentdomain.Payment{},
		&expensedomain.Expense{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	rec := &audittest.Recorder{}
	expenses := expenseservice.New(expenseservice.Params{
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)),
		Repo:     expenserepo.Provide(db),
		Calc:     tax.NewFixedCalculator(tax.DefaultRate),
		AuditSvc: rec,
	})
	return &fixture{
		db:       db,
		node:     node,
		expenses: expenses,
		audit:    rec,
		svc: New(Params{
			DB:         db,
			Log:        zap.NewNop(),
			ExpenseSvc: expenses,
			AuditSvc:   rec,
		}),
	}
}

func (f *fixture) invoice(t *testing.T, number string, dt invoicedomain.DocumentType, st invoicedomain.PaymentStatus, subtotal int64, issued time.Time) {
	t.Helper()
	iva := subtotal * 19 / 100
	name := "Ana Pérez"
	inv := invoicedomain.Invoice{
		ID:            f.node.Generate(),
		Number:        number,
		DocumentType:  dt,
		ClientName:    &name,
		Subtotal:      subtotal,
		TaxRate:       0.19,
		Tax:           iva,
		Total:         subtotal + iva,
		PaymentStatus: st,
		IssuedAt:      issued,
		CreatedAt:     issued,
		UpdatedAt:     issued,
	}
	require.NoError(t, f.db.Create(&inv).Error)
}

func (f *fixture) expense(t *testing.T, net int64, issued time.Time) {
	t.Helper()
	_, err := f.expenses.Create(context.Background(), expensedomain.CreateRequest{
		SupplierName: "Insumos Médicos SpA",
		Category:     "insumos",
		NetAmount:    net,
		IssuedAt:     issued,
	})
	require.NoError(t, err)
}

func march(day int) time.Time {
	return time.Date(2025, 3, day, 12, 0, 0, 0, time.UTC)
}

func TestParseMonth(t *testing.T) {
	from, to, err := ParseMonth("2025-12", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), to)

	santiago, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)
	// March 2025 starts on summer time (UTC-3); July is on winter time (UTC-4).
	from, to, err = ParseMonth("2025-03", santiago)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 4, 1, 3, 0, 0, 0, time.UTC), to)
	from, _, err = ParseMonth("2025-07", santiago)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 1, 4, 0, 0, 0, time.UTC), from)

	for _, bad := range []string{"", "2025-13", "2025/03", "march"} {
		_, _, err := ParseMonth(bad, santiago)
		assert.ErrorIs(t, err, ErrInvalidMonth, bad)
	}
}

func TestMonthlyIVA(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "B-000001", invoicedomain.DocumentBoleta, invoicedomain.StatusPaid, 100000, march(3))
	f.invoice(t, "F-000001", invoicedomain.DocumentFactura, invoicedomain.StatusPending, 200000, march(15))
	f.invoice(t, "B-000002", invoicedomain.DocumentBoleta, invoicedomain.StatusCancelled, 50000, march(16))
	f.invoice(t, "NC-000001", invoicedomain.DocumentNotaCredito, invoicedomain.StatusPending, 10000, march(20))
	f.invoice(t, "B-000003", invoicedomain.DocumentBoleta, invoicedomain.StatusPaid, 70000, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	f.expense(t, 40000, march(10))
	f.expense(t, 90000, time.Date(2025, 2, 28, 23, 0, 0, 0, time.UTC))

	s, err := f.svc.MonthlyIVA(context.Background(), "2025-03")
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.SalesCount)
	assert.Equal(t, int64(1), s.CreditNotesCount)
	assert.Equal(t, int64(290000), s.SalesNet)
	assert.Equal(t, int64(19000+38000-1900), s.Debit)
	assert.Equal(t, int64(1), s.PurchasesCount)
	assert.Equal(t, int64(40000), s.PurchasesNet)
	assert.Equal(t, int64(7600), s.Credit)
	assert.Equal(t, int64(55100-7600), s.NetIVA)
	assert.Equal(t, StatusToPay, s.Status)
}

func TestMonthlyIVAUsesClinicTimeZone(t *testing.T) {
	f := newFixture(t)
	f.svc.billing = config.NewStaticBillingConfig(config.DefaultBillingConfig())

	// 2025-04-01 02:00Z is still 31 March 23:00 in Santiago.
	f.invoice(t, "B-000001", invoicedomain.DocumentBoleta, invoicedomain.StatusPaid, 100000, time.Date(2025, 4, 1, 2, 0, 0, 0, time.UTC))
	// 2025-03-01 02:00Z is 28 February 23:00 in Santiago.
	f.invoice(t, "B-000002", invoicedomain.DocumentBoleta, invoicedomain.StatusPaid, 50000, time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC))
	f.expense(t, 40000, time.Date(2025, 4, 1, 1, 0, 0, 0, time.UTC))

	mar, err := f.svc.MonthlyIVA(context.Background(), "2025-03")
	require.NoError(t, err)
	assert.Equal(t, int64(1), mar.SalesCount)
	assert.Equal(t, int64(100000), mar.SalesNet)
	assert.Equal(t, int64(1), mar.PurchasesCount)
	assert.Equal(t, time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC), mar.From)

	feb, err := f.svc.MonthlyIVA(context.Background(), "2025-02")
	require.NoError(t, err)
	assert.Equal(t, int64(1), feb.SalesCount)
	assert.Equal(t, int64(50000), feb.SalesNet)
}

func TestMonthlyIVAStatus(t *testing.T) {
	f := newFixture(t)

	s, err := f.svc.MonthlyIVA(context.Background(), "2025-03")
	require.NoError(t, err)
	assert.Equal(t, StatusNoChange, s.Status)
	assert.Zero(t, s.NetIVA)

	f.expense(t, 10000, march(2))
	s, err = f.svc.MonthlyIVA(context.Background(), "2025-03")
	require.NoError(t, err)
	assert.Equal(t, int64(-1900), s.NetIVA)
	assert.Equal(t, StatusCarry, s.Status)

	_, err = f.svc.MonthlyIVA(context.Background(), "2025-3")
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestExportMonthlyIVA(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "B-000001", invoicedomain.DocumentBoleta, invoicedomain.StatusPaid, 100000, march(3))
	f.invoice(t, "NC-000001", invoicedomain.DocumentNotaCredito, invoicedomain.StatusPending, 10000, march(4))
	f.expense(t, 40000, march(10))

	data, name, err := f.svc.ExportMonthlyIVA(context.Background(), "2025-03")
	require.NoError(t, err)
	assert.Equal(t, "iva-2025-03.xlsx", name)

	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()

	assert.Equal(t, []string{sheetSummary, sheetSales, sheetPurchases}, book.GetSheetList())

	period, err := book.GetCellValue(sheetSummary, "B1")
	require.NoError(t, err)
	assert.Equal(t, "2025-03", period)
	status, err := book.GetCellValue(sheetSummary, "B10")
	require.NoError(t, err)
	assert.Equal(t, string(StatusToPay), status)

	rows, err := book.GetRows(sheetSales)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "B-000001", rows[1][0])
	assert.Equal(t, "NC-000001", rows[2][0])

	rows, err = book.GetRows(sheetPurchases)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Insumos Médicos SpA", rows[1][1])

	entry := f.audit.Last()
	assert.Equal(t, auditdomain.ActionExport, entry.Action)
	assert.Equal(t, "iva_report", entry.Resource)
	assert.Equal(t, "2025-03", entry.Details["month"])
}
