package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/kinesio/internal/config"
	"github.com/smallbiznis/kinesio/internal/notification/domain"
	"github.com/smallbiznis/kinesio/internal/requestctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingDispatcher struct {
	mu         sync.Mutex
	invoices   []domain.InvoiceEmail
	requestIDs []string
	fail       bool
	block      chan struct{}
}

func (d *recordingDispatcher) SendInvoiceEmail(ctx context.Context, msg domain.InvoiceEmail) error {
	if d.block != nil {
		<-d.block
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.invoices = append(d.invoices, msg)
	d.requestIDs = append(d.requestIDs, requestctx.RequestIDFromContext(ctx))
	if d.fail {
		return errors.New("boom")
	}
	return nil
}

func (d *recordingDispatcher) SendPaymentConfirmationEmail(context.Context, domain.PaymentConfirmationEmail) error {
	return nil
}

func (d *recordingDispatcher) SendPaymentSMS(context.Context, domain.PaymentSMS) error {
	return nil
}

func newTestQueue(d domain.Dispatcher, size, workers int) *Queue {
	cfg := config.DefaultBillingConfig()
	cfg.Notification.QueueSize = size
	cfg.Notification.Workers = workers
	return NewQueue(QueueParams{Log: zap.NewNop(), Dispatcher: d, Billing: config.NewStaticBillingConfig(cfg)})
}

func invoiceNotification(number string) domain.Notification {
	msg := sampleInvoiceEmail()
	msg.InvoiceNumber = number
	return domain.Notification{Kind: domain.KindInvoiceEmail, InvoiceEmail: &msg}
}

func TestQueueDeliversAndCarriesRequestID(t *testing.T) {
	d := &recordingDispatcher{}
	q := newTestQueue(d, 4, 1)
	q.Start()

	ctx := requestctx.WithRequestID(context.Background(), "req-1")
	q.Publish(ctx, invoiceNotification("B-000001"))
	q.Publish(ctx, invoiceNotification("B-000002"))

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(stopCtx))

	require.Len(t, d.invoices, 2)
	assert.Equal(t, "B-000001", d.invoices[0].InvoiceNumber)
	assert.Equal(t, []string{"req-1", "req-1"}, d.requestIDs)
}

func TestQueueDropsWhenFull(t *testing.T) {
	d := &recordingDispatcher{}
	q := newTestQueue(d, 1, 1)

	// Not started: the single slot fills and the rest are dropped.
	q.Publish(context.Background(), invoiceNotification("B-000001"))
	q.Publish(context.Background(), invoiceNotification("B-000002"))
	q.Publish(context.Background(), invoiceNotification("B-000003"))

	q.Start()
	require.NoError(t, q.Stop(context.Background()))

	require.Len(t, d.invoices, 1)
	assert.Equal(t, "B-000001", d.invoices[0].InvoiceNumber)
}

func TestQueueIgnoresPublishAfterStop(t *testing.T) {
	d := &recordingDispatcher{}
	q := newTestQueue(d, 2, 1)
	q.Start()
	require.NoError(t, q.Stop(context.Background()))

	assert.NotPanics(t, func() {
		q.Publish(context.Background(), invoiceNotification("B-000009"))
	})
	assert.Empty(t, d.invoices)
}

func TestQueueSwallowsDeliveryFailure(t *testing.T) {
	d := &recordingDispatcher{fail: true}
	q := newTestQueue(d, 2, 1)
	q.Start()
	q.Publish(context.Background(), invoiceNotification("B-000001"))
	require.NoError(t, q.Stop(context.Background()))
	assert.Len(t, d.invoices, 1)
}

func TestDispatchRejectsMismatchedPayload(t *testing.T) {
	err := Dispatch(context.Background(), &recordingDispatcher{}, domain.Notification{Kind: domain.KindPaymentSMS})
	assert.ErrorIs(t, err, ErrMalformedNotification)
}
