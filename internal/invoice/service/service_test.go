package service

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kinesio/internal/audit/audittest"
	auditdomain "github.com/smallbiznis/kinesio/internal/audit/domain"
	"github.com/smallbiznis/kinesio/internal/clock"
	"github.com/smallbiznis/kinesio/internal/config"
	"github.com/smallbiznis/kinesio/internal/crypto/fieldcrypt"
	"github.com/smallbiznis/kinesio/internal/invoice/domain"
	"github.com/smallbiznis/kinesio/internal/invoice/numbering"
	"github.com/smallbiznis/kinesio/internal/invoice/repository"
	notificationdomain "github.com/smallbiznis/kinesio/internal/notification/domain"
	patientdomain "github.com/smallbiznis/kinesio/internal/patient/domain"
	patientrepo "github.com/smallbiznis/kinesio/internal/patient/repository"
	patientservice "github.com/smallbiznis/kinesio/internal/patient/service"
	paymentdomain "github.com/smallbiznis/kinesio/internal/payment/domain"
	"github.com/smallbiznis/kinesio/internal/providers/pdf"
	servicepricedomain "github.com/smallbiznis/kinesio/internal/serviceprice/domain"
	servicepricerepo "github.com/smallbiznis/kinesio/internal/serviceprice/repository"
	servicepriceservice "github.com/smallbiznis/kinesio/internal/serviceprice/service"
	"github.com/smallbiznis/kinesio/internal/tax"
	"github.com/smallbiznis/kinesio/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu   sync.Mutex
	sent []notificationdomain.Notification
}

func (p *recordingPublisher) Publish(_ context.Context, n notificationdomain.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
}

func (p *recordingPublisher) kinds() []notificationdomain.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notificationdomain.Kind, 0, len(p.sent))
	for _, n := range p.sent {
		out = append(out, n.Kind)
	}
	return out
}

type fixture struct {
	svc        domain.Service
	db         *gorm.DB
	clock      *clock.FakeClock
	audit      *audittest.Recorder
	publisher  *recordingPublisher
	patientSvc patientdomain.Service
	priceSvc   servicepricedomain.Service
}

var start = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, mutate ...func(*config.BillingConfig)) fixture {
	t.Helper()
	db := dbtest.Open(t,
		&domain.Invoice{},
		&domain.InvoiceItem{},
		&domain.Sequence{},
		&paymentdomain.Payment{},
		&patientdomain.Patient{},
		&patientdomain.ClinicalRecord{},
		&servicepricedomain.ServicePrice{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	billingCfg := config.DefaultBillingConfig()
	billingCfg.Clinic.Name = "Kinesio Sur"
	for _, m := range mutate {
		m(&billingCfg)
	}
	billing := config.NewStaticBillingConfig(billingCfg)
	clk := clock.NewFakeClock(start)
	rec := &audittest.Recorder{}
	pub := &recordingPublisher{}
	calc := tax.NewFixedCalculator(tax.DefaultRate)

	patientSvc := patientservice.New(patientservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk,
		Repo:     patientrepo.Provide(),
		Cipher:   fieldcrypt.NewCipher(fieldcrypt.NewStaticKeys("test", make([]byte, 32))),
		Billing:  billing,
		AuditSvc: rec,
	})
	priceSvc := servicepriceservice.New(servicepriceservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk,
		Repo:     servicepricerepo.Provide(db),
		Calc:     calc,
		AuditSvc: rec,
	})

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Repo:       repository.Provide(),
		Allocator:  numbering.NewAllocator(),
		Calc:       calc,
		Billing:    billing,
		AuditSvc:   rec,
		Publisher:  pub,
		PatientSvc: patientSvc,
		PriceSvc:   priceSvc,
		Renderer:   pdf.New(),
	})
	return fixture{svc: svc, db: db, clock: clk, audit: rec, publisher: pub, patientSvc: patientSvc, priceSvc: priceSvc}
}

func qty(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func boletaRequest() domain.CreateInvoiceRequest {
	return domain.CreateInvoiceRequest{
		DocumentType: "BOLETA",
		ClientName:   "Ana Rojas",
		ClientEmail:  "ana@example.cl",
		Items: []domain.CreateItemRequest{
			{Description: "Sesión kinesiología", Quantity: qty("3"), UnitPrice: 25000},
		},
	}
}

func TestCreateInvoiceComputesTotalsAndNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.CreateInvoice(ctx, boletaRequest())
	require.NoError(t, err)
	assert.Equal(t, "B-000001", inv.Number)
	assert.Equal(t, int64(75000), inv.Subtotal)
	assert.Equal(t, int64(14250), inv.Tax)
	assert.Equal(t, int64(89250), inv.Total)
	assert.Equal(t, inv.Subtotal+inv.Tax, inv.Total)
	assert.Equal(t, domain.StatusPending, inv.PaymentStatus)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, 1, inv.Items[0].Position)
	assert.Equal(t, int64(75000), inv.Items[0].Subtotal)

	stored, err := f.svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "B-000001", stored.Number)
	require.Len(t, stored.Items, 1)
	assert.True(t, stored.Items[0].Quantity.Equal(qty("3")))
	assert.Empty(t, stored.Payments)

	assert.Equal(t, []notificationdomain.Kind{notificationdomain.KindInvoiceEmail}, f.publisher.kinds())
	last := f.audit.Last()
	assert.Equal(t, auditdomain.ActionCreate, last.Action)
	assert.Equal(t, "invoice", last.Resource)
}

func TestCreateInvoiceNumbersPerDocumentType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateInvoice(ctx, boletaRequest())
	require.NoError(t, err)
	second, err := f.svc.CreateInvoice(ctx, boletaRequest())
	require.NoError(t, err)

	factura := boletaRequest()
	factura.DocumentType = "FACTURA"
	factura.ClientRUT = "76.086.428-5"
	fac, err := f.svc.CreateInvoice(ctx, factura)
	require.NoError(t, err)

	credit := boletaRequest()
	credit.DocumentType = "NOTA_CREDITO"
	nc, err := f.svc.CreateInvoice(ctx, credit)
	require.NoError(t, err)

	assert.Equal(t, "B-000001", first.Number)
	assert.Equal(t, "B-000002", second.Number)
	assert.Equal(t, "F-000001", fac.Number)
	assert.Equal(t, "NC-000001", nc.Number)
	assert.Equal(t, "76086428-5", *fac.ClientRUT)
}

func TestCreateInvoiceConcurrentNumbersAreUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 8
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv, err := f.svc.CreateInvoice(ctx, boletaRequest())
			if assert.NoError(t, err) {
				numbers <- inv.Number
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for number := range numbers {
		assert.False(t, seen[number], "duplicate %s", number)
		seen[number] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen["B-000008"])
}

func TestCreateInvoiceValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*domain.CreateInvoiceRequest)
		err    error
	}{
		{"unknown type", func(r *domain.CreateInvoiceRequest) { r.DocumentType = "RECIBO" }, domain.ErrInvalidDocumentType},
		{"no items", func(r *domain.CreateInvoiceRequest) { r.Items = nil }, domain.ErrEmptyItems},
		{"no client", func(r *domain.CreateInvoiceRequest) { r.ClientName = " " }, domain.ErrMissingClient},
		{"bad rut", func(r *domain.CreateInvoiceRequest) { r.ClientRUT = "11.111.111-2" }, domain.ErrInvalidClientRUT},
		{"factura without rut", func(r *domain.CreateInvoiceRequest) { r.DocumentType = "FACTURA" }, domain.ErrInvalidClientRUT},
		{"zero quantity", func(r *domain.CreateInvoiceRequest) { r.Items[0].Quantity = decimal.Zero }, tax.ErrInvalidQuantity},
		{"zero price", func(r *domain.CreateInvoiceRequest) { r.Items[0].UnitPrice = 0 }, tax.ErrInvalidUnitPrice},
		{"negative discount", func(r *domain.CreateInvoiceRequest) { r.Items[0].Discount = -1 }, tax.ErrInvalidDiscount},
		{"discount above gross", func(r *domain.CreateInvoiceRequest) { r.Items[0].Discount = 75001 }, tax.ErrNegativeLineSubtotal},
		{"fully discounted", func(r *domain.CreateInvoiceRequest) { r.Items[0].Discount = 75000 }, domain.ErrZeroTotal},
		{"three decimal quantity", func(r *domain.CreateInvoiceRequest) { r.Items[0].Quantity = qty("0.333") }, tax.ErrInvalidQuantity},
		{"no description", func(r *domain.CreateInvoiceRequest) { r.Items[0].Description = "" }, domain.ErrInvalidDescription},
		{"due date in the past", func(r *domain.CreateInvoiceRequest) {
			past := start.AddDate(0, 0, -1)
			r.DueDate = domain.DayOf(past)
		}, domain.ErrInvalidDueDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := boletaRequest()
			tc.mutate(&req)
			_, err := f.svc.CreateInvoice(ctx, req)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&domain.Invoice{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateInvoiceFractionalQuantityAndDiscount(t *testing.T) {
	f := newFixture(t)
	req := boletaRequest()
	req.Items = []domain.CreateItemRequest{
		{Description: "Media sesión", Quantity: qty("0.5"), UnitPrice: 25001},
		{Description: "Evaluación", Quantity: qty("1"), UnitPrice: 20000, Discount: 5000},
	}

	inv, err := f.svc.CreateInvoice(context.Background(), req)
	require.NoError(t, err)
	// 12500.5 rounds half-up to 12501.
	assert.Equal(t, int64(12501), inv.Items[0].Subtotal)
	assert.Equal(t, int64(15000), inv.Items[1].Subtotal)
	assert.Equal(t, int64(27501), inv.Subtotal)
	assert.Equal(t, int64(5225), inv.Tax)
	assert.Equal(t, int64(32726), inv.Total)
}

func TestCreateInvoiceFromPatientSnapshotsClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.patientSvc.Create(ctx, patientdomain.CreateRequest{
		RUT:       "12.345.678-5",
		FirstName: "Ana",
		LastName:  "Rojas",
		Email:     "ana@example.cl",
		Phone:     "+56911112222",
	})
	require.NoError(t, err)

	req := boletaRequest()
	req.ClientName = ""
	req.ClientEmail = ""
	req.PatientID = &p.ID
	inv, err := f.svc.CreateInvoice(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Ana Rojas", *inv.ClientName)
	assert.Equal(t, "12345678-5", *inv.ClientRUT)
	assert.Equal(t, "ana@example.cl", *inv.ClientEmail)
	assert.Equal(t, p.ID, *inv.PatientID)

	unknown := snowflake.ID(42)
	req.PatientID = &unknown
	_, err = f.svc.CreateInvoice(ctx, req)
	assert.ErrorIs(t, err, domain.ErrPatientNotFound)
}

func TestCreateInvoiceUsesServicePrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	price, err := f.priceSvc.Create(ctx, servicepricedomain.CreateRequest{Name: "Sesión", Category: "kine", BasePrice: 25000})
	require.NoError(t, err)

	req := boletaRequest()
	req.Items = []domain.CreateItemRequest{{Quantity: qty("2"), ServicePriceID: &price.ID}}
	inv, err := f.svc.CreateInvoice(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Sesión", inv.Items[0].Description)
	assert.Equal(t, int64(25000), inv.Items[0].UnitPrice)
	assert.Equal(t, int64(50000), inv.Subtotal)

	_, err = f.priceSvc.Deactivate(ctx, price.ID.String())
	require.NoError(t, err)
	_, err = f.svc.CreateInvoice(ctx, req)
	assert.ErrorIs(t, err, domain.ErrServicePriceNotFound)
}

func TestCreateInvoiceDefaultDueDate(t *testing.T) {
	f := newFixture(t, func(cfg *config.BillingConfig) { cfg.DefaultDueDays = 30 })

	inv, err := f.svc.CreateInvoice(context.Background(), boletaRequest())
	require.NoError(t, err)
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, time.Date(2025, 4, 9, 23, 59, 59, 0, time.UTC), *inv.DueDate)
}

func TestCreateInvoicePlainDueDateEndsThatDay(t *testing.T) {
	f := newFixture(t)

	day, err := domain.ParseDay("2025-03-31")
	require.NoError(t, err)
	req := boletaRequest()
	req.DueDate = &day
	inv, err := f.svc.CreateInvoice(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC), *inv.DueDate)
}

func TestRegisterPaymentTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.CreateInvoice(ctx, boletaRequest())
	require.NoError(t, err)

	partial, err := f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{
		InvoiceID: inv.ID, Amount: 50000, Method: "transfer", Reference: "TRX-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartial, partial.Invoice.PaymentStatus)
	assert.Equal(t, int64(50000), partial.Invoice.PaidAmount)
	assert.Nil(t, partial.Invoice.PaidAt)
	assert.Equal(t, paymentdomain.MethodTransfer, partial.Payment.Method)

	paid, err := f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{
		InvoiceID: inv.ID, Amount: 39250, Method: "CASH",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Invoice.PaymentStatus)
	assert.Equal(t, int64(89250), paid.Invoice.PaidAmount)
	require.NotNil(t, paid.Invoice.PaidAt)
	assert.Len(t, paid.Invoice.Payments, 2)

	stored, err := f.svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, stored.PaymentStatus)
	assert.Equal(t, int64(89250), stored.PaidAmount)

	assert.Equal(t, []notificationdomain.Kind{
		notificationdomain.KindInvoiceEmail,
		notificationdomain.KindPaymentConfirmation,
		notificationdomain.KindInvoiceEmail,
	}, f.publisher.kinds())

	_, err = f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{InvoiceID: inv.ID, Amount: 1, Method: "CASH"})
	assert.ErrorIs(t, err, domain.ErrInvoiceAlreadyPaid)
}

func TestRegisterPaymentAfterDueDateIsOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	due := start.AddDate(0, 0, 5)
	req := boletaRequest()
	req.DueDate = domain.DayOf(due)
	inv, err := f.svc.CreateInvoice(ctx, req)
	require.NoError(t, err)

	f.clock.Set(start.AddDate(0, 0, 6))
	res, err := f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{InvoiceID: inv.ID, Amount: 10000, Method: "CARD"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverdue, res.Invoice.PaymentStatus)

	res, err = f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{InvoiceID: inv.ID, Amount: 79250, Method: "CARD"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, res.Invoice.PaymentStatus)
}

func TestRegisterPaymentOnDueDayIsPartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	due := start
	req := boletaRequest()
	req.DueDate = domain.DayOf(due)
	inv, err := f.svc.CreateInvoice(ctx, req)
	require.NoError(t, err)

	f.clock.Set(time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC))
	res, err := f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{InvoiceID: inv.ID, Amount: 1000, Method: "CASH"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartial, res.Invoice.PaymentStatus)
}

func TestRegisterPaymentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.CreateInvoice(ctx, boletaRequest())
	require.NoError(t, err)

	_, err = f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{InvoiceID: inv.ID, Amount: 0, Method: "CASH"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{InvoiceID: inv.ID, Amount: 100, Method: "BITCOIN"})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidMethod)

	_, err = f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{InvoiceID: inv.ID, Amount: 89251, Method: "CASH"})
	assert.ErrorIs(t, err, domain.ErrOverpayment)

	_, err = f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{InvoiceID: 999, Amount: 100, Method: "CASH"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var payments int64
	require.NoError(t, f.db.Model(&paymentdomain.Payment{}).Count(&payments).Error)
	assert.Zero(t, payments)
}

func TestRegisterPaymentQueuesSMSWhenEnabled(t *testing.T) {
	f := newFixture(t, func(cfg *config.BillingConfig) { cfg.Notification.SMSEnabled = true })
	ctx := context.Background()

	req := boletaRequest()
	req.ClientEmail = ""
	req.ClientPhone = "+56911112222"
	inv, err := f.svc.CreateInvoice(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{InvoiceID: inv.ID, Amount: 1000, Method: "CASH"})
	require.NoError(t, err)
	assert.Equal(t, []notificationdomain.Kind{notificationdomain.KindPaymentSMS}, f.publisher.kinds())
	assert.Equal(t, int64(88250), f.publisher.sent[0].PaymentSMS.Balance)
}

func TestCancelInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := boletaRequest()
	req.Notes = "Convenio empresa"
	inv, err := f.svc.CreateInvoice(ctx, req)
	require.NoError(t, err)

	cancelled, err := f.svc.CancelInvoice(ctx, inv.ID, "error de digitación")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.PaymentStatus)
	assert.Equal(t, "Convenio empresa\n[ANULADA] error de digitación", *cancelled.Notes)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, "error de digitación", f.audit.Last().Details["reason"])

	_, err = f.svc.CancelInvoice(ctx, inv.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvoiceCancelled)

	_, err = f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{InvoiceID: inv.ID, Amount: 100, Method: "CASH"})
	assert.ErrorIs(t, err, domain.ErrInvoiceCancelled)

	paid, err := f.svc.CreateInvoice(ctx, boletaRequest())
	require.NoError(t, err)
	_, err = f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{InvoiceID: paid.ID, Amount: 89250, Method: "CASH"})
	require.NoError(t, err)
	_, err = f.svc.CancelInvoice(ctx, paid.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvoiceAlreadyPaid)
}

func TestCancelWithoutNotesOrReason(t *testing.T) {
	f := newFixture(t)
	inv, err := f.svc.CreateInvoice(context.Background(), boletaRequest())
	require.NoError(t, err)

	cancelled, err := f.svc.CancelInvoice(context.Background(), inv.ID, "  ")
	require.NoError(t, err)
	assert.Equal(t, "[ANULADA]", *cancelled.Notes)
}

func TestGetInvoiceStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending, err := f.svc.CreateInvoice(ctx, boletaRequest())
	require.NoError(t, err)
	partial, err := f.svc.CreateInvoice(ctx, boletaRequest())
	require.NoError(t, err)
	paid, err := f.svc.CreateInvoice(ctx, boletaRequest())
	require.NoError(t, err)
	cancelled, err := f.svc.CreateInvoice(ctx, boletaRequest())
	require.NoError(t, err)

	_, err = f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{InvoiceID: partial.ID, Amount: 9250, Method: "CASH"})
	require.NoError(t, err)
	_, err = f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{InvoiceID: paid.ID, Amount: 89250, Method: "CASH"})
	require.NoError(t, err)
	_, err = f.svc.CancelInvoice(ctx, cancelled.ID, "")
	require.NoError(t, err)
	_ = pending

	stats, err := f.svc.GetInvoiceStats(ctx, domain.StatsRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.Bucket{Count: 3, Amount: 3 * 89250}, stats.Total)
	assert.Equal(t, domain.Bucket{Count: 2, Amount: 89250 + 80000}, stats.Pending)
	assert.Equal(t, domain.Bucket{Count: 1, Amount: 89250}, stats.Paid)
	assert.Equal(t, domain.Bucket{}, stats.Overdue)

	again, err := f.svc.GetInvoiceStats(ctx, domain.StatsRequest{})
	require.NoError(t, err)
	assert.Equal(t, stats, again)

	from := start.Add(time.Hour)
	empty, err := f.svc.GetInvoiceStats(ctx, domain.StatsRequest{IssuedFrom: &from})
	require.NoError(t, err)
	assert.Zero(t, empty.Total.Count)

	to := start
	_, err = f.svc.GetInvoiceStats(ctx, domain.StatsRequest{IssuedFrom: &from, IssuedTo: &to})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestSweepOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	due := start.AddDate(0, 0, 3)
	withDue := boletaRequest()
	withDue.DueDate = domain.DayOf(due)

	late, err := f.svc.CreateInvoice(ctx, withDue)
	require.NoError(t, err)
	lateCancelled, err := f.svc.CreateInvoice(ctx, withDue)
	require.NoError(t, err)
	_, err = f.svc.CancelInvoice(ctx, lateCancelled.ID, "")
	require.NoError(t, err)
	noDue, err := f.svc.CreateInvoice(ctx, boletaRequest())
	require.NoError(t, err)

	promoted, err := f.svc.SweepOverdue(ctx, start.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Zero(t, promoted)

	promoted, err = f.svc.SweepOverdue(ctx, start.AddDate(0, 0, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(1), promoted)

	got, err := f.svc.GetInvoice(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverdue, got.PaymentStatus)

	got, err = f.svc.GetInvoice(ctx, noDue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.PaymentStatus)

	stats, err := f.svc.GetInvoiceStats(ctx, domain.StatsRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.Bucket{Count: 1, Amount: 89250}, stats.Overdue)
}

func TestListInvoicesFiltersAndOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateInvoice(ctx, boletaRequest())
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	mp := boletaRequest()
	mp.MPPaymentID = "mp-123"
	second, err := f.svc.CreateInvoice(ctx, mp)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	third, err := f.svc.CreateInvoice(ctx, boletaRequest())
	require.NoError(t, err)
	_, err = f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{InvoiceID: third.ID, Amount: 100, Method: "CASH"})
	require.NoError(t, err)

	all, err := f.svc.ListInvoices(ctx, domain.ListInvoicesRequest{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []snowflake.ID{third.ID, second.ID, first.ID}, []snowflake.ID{all[0].ID, all[1].ID, all[2].ID})
	assert.Len(t, all[0].Payments, 1)
	assert.Len(t, all[1].Items, 1)

	partial, err := f.svc.ListInvoices(ctx, domain.ListInvoicesRequest{PaymentStatus: "partial"})
	require.NoError(t, err)
	require.Len(t, partial, 1)
	assert.Equal(t, third.ID, partial[0].ID)

	byMP, err := f.svc.ListInvoices(ctx, domain.ListInvoicesRequest{MPPaymentID: "mp-123"})
	require.NoError(t, err)
	require.Len(t, byMP, 1)
	assert.Equal(t, second.ID, byMP[0].ID)

	limited, err := f.svc.ListInvoices(ctx, domain.ListInvoicesRequest{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	from := start.Add(30 * time.Minute)
	to := start.Add(90 * time.Minute)
	window, err := f.svc.ListInvoices(ctx, domain.ListInvoicesRequest{IssuedFrom: &from, IssuedTo: &to})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, second.ID, window[0].ID)

	_, err = f.svc.ListInvoices(ctx, domain.ListInvoicesRequest{PaymentStatus: "LOST"})
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentStatus)
}

func TestRenderInvoicePDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.CreateInvoice(ctx, boletaRequest())
	require.NoError(t, err)
	_, err = f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{InvoiceID: inv.ID, Amount: 1000, Method: "CASH"})
	require.NoError(t, err)

	doc, err := f.svc.RenderInvoicePDF(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
	assert.Equal(t, auditdomain.ActionExport, f.audit.Last().Action)

	_, err = f.svc.RenderInvoicePDF(ctx, 12345)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, 100, normalizeLimit(0))
	assert.Equal(t, 500, normalizeLimit(10000))
	assert.Equal(t, 20, normalizeLimit(20))
}

func TestAppendCancelNote(t *testing.T) {
	existing := "nota\n"
	assert.Equal(t, "nota\n[ANULADA] x", appendCancelNote(&existing, "x"))
	assert.Equal(t, "[ANULADA] x", appendCancelNote(nil, "x"))
}
