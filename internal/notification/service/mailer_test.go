package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/smallbiznis/kinesio/internal/config"
	"github.com/smallbiznis/kinesio/internal/notification/domain"
	"github.com/smallbiznis/kinesio/internal/providers/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEmail struct {
	mu       sync.Mutex
	failures int
	sent     []email.Message
	calls    int
}

func (f *fakeEmail) Send(_ context.Context, msg email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeSMS struct {
	mu     sync.Mutex
	bodies []string
	to     []string
}

func (f *fakeSMS) Send(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to = append(f.to, to)
	f.bodies = append(f.bodies, body)
	return nil
}

func testBilling() *config.BillingConfigHolder {
	cfg := config.DefaultBillingConfig()
	cfg.Clinic.Name = "Kinesio Sur"
	cfg.Clinic.RUT = "76.086.428-5"
	cfg.Notification.MaxRetries = 3
	cfg.Notification.AttemptTimeout = time.Second
	return config.NewStaticBillingConfig(cfg)
}

func newTestMailer(e email.Provider, s *fakeSMS) *Mailer {
	m := NewMailer(MailerParams{Log: zap.NewNop(), Email: e, SMS: s, Billing: testBilling()})
	m.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return m
}

func sampleInvoiceEmail() domain.InvoiceEmail {
	due := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	return domain.InvoiceEmail{
		To:            "paciente@example.cl",
		ClientName:    "Ana Rojas",
		DocumentLabel: "Boleta",
		InvoiceNumber: "B-000001",
		IssuedAt:      time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		DueDate:       &due,
		Items: []domain.LineItem{
			{Description: "Sesión kinesiología", Quantity: "3", UnitPrice: 25000, Subtotal: 75000},
		},
		Subtotal: 75000,
		Tax:      14250,
		Total:    89250,
		Balance:  89250,
		Status:   "PENDING",
	}
}

func TestSendInvoiceEmailRendersTotals(t *testing.T) {
	provider := &fakeEmail{}
	m := newTestMailer(provider, &fakeSMS{})

	require.NoError(t, m.SendInvoiceEmail(context.Background(), sampleInvoiceEmail()))
	require.Len(t, provider.sent, 1)

	msg := provider.sent[0]
	assert.Equal(t, []string{"paciente@example.cl"}, msg.To)
	assert.Equal(t, "Boleta B-000001 - Kinesio Sur", msg.Subject)
	assert.Contains(t, msg.HTMLBody, "$89.250")
	assert.Contains(t, msg.HTMLBody, "$14.250")
	assert.Contains(t, msg.HTMLBody, "31-03-2025")
	assert.NotContains(t, msg.HTMLBody, "Pagado:")
}

func TestSendInvoiceEmailRetriesTransientFailures(t *testing.T) {
	provider := &fakeEmail{failures: 2}
	m := newTestMailer(provider, &fakeSMS{})

	require.NoError(t, m.SendInvoiceEmail(context.Background(), sampleInvoiceEmail()))
	assert.Equal(t, 3, provider.calls)
	assert.Len(t, provider.sent, 1)
}

func TestSendInvoiceEmailGivesUpAfterMaxRetries(t *testing.T) {
	provider := &fakeEmail{failures: 10}
	m := newTestMailer(provider, &fakeSMS{})

	err := m.SendInvoiceEmail(context.Background(), sampleInvoiceEmail())
	require.Error(t, err)
	assert.Equal(t, 3, provider.calls)
	assert.Empty(t, provider.sent)
}

func TestSendEmailWithoutRecipientIsPermanent(t *testing.T) {
	provider := &fakeEmail{}
	m := newTestMailer(provider, &fakeSMS{})

	msg := sampleInvoiceEmail()
	msg.To = " "
	err := m.SendInvoiceEmail(context.Background(), msg)
	assert.ErrorIs(t, err, email.ErrNoRecipients)
	assert.Zero(t, provider.calls)
}

func TestSendPaymentConfirmationEmail(t *testing.T) {
	provider := &fakeEmail{}
	m := newTestMailer(provider, &fakeSMS{})

	err := m.SendPaymentConfirmationEmail(context.Background(), domain.PaymentConfirmationEmail{
		To:            "paciente@example.cl",
		ClientName:    "Ana Rojas",
		InvoiceNumber: "B-000001",
		Amount:        50000,
		Method:        "Transferencia",
		PaidAt:        time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		PaidAmount:    50000,
		Total:         89250,
		Balance:       39250,
		Status:        "PARTIAL",
	})
	require.NoError(t, err)
	require.Len(t, provider.sent, 1)
	assert.Equal(t, "Pago recibido B-000001 - Kinesio Sur", provider.sent[0].Subject)
	assert.Contains(t, provider.sent[0].HTMLBody, "$50.000")
	assert.Contains(t, provider.sent[0].HTMLBody, "$39.250")
}

func TestSendPaymentSMS(t *testing.T) {
	s := &fakeSMS{}
	m := newTestMailer(&fakeEmail{}, s)

	err := m.SendPaymentSMS(context.Background(), domain.PaymentSMS{
		To:            "+56911112222",
		InvoiceNumber: "B-000001",
		Amount:        89250,
	})
	require.NoError(t, err)
	require.Len(t, s.bodies, 1)
	assert.Equal(t, "+56911112222", s.to[0])
	assert.Equal(t, "Kinesio Sur: recibimos su pago de $89.250 para B-000001. Saldo: $0.", s.bodies[0])
}
