package service

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/kinesio/internal/config"
	"github.com/smallbiznis/kinesio/internal/notification/domain"
	"github.com/smallbiznis/kinesio/internal/observability/metrics"
	"github.com/smallbiznis/kinesio/internal/requestctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type job struct {
	id           string
	requestID    string
	notification domain.Notification
}

type QueueParams struct {
	fx.In

	Log        *zap.Logger
	Dispatcher domain.Dispatcher
	Billing    *config.BillingConfigHolder
	Metrics    *metrics.Metrics `optional:"true"`
}

// Queue delivers notifications on background workers. Jobs are dropped, not
// blocked on, when the buffer is full.
type Queue struct {
	log        *zap.Logger
	dispatcher domain.Dispatcher
	metrics    *metrics.Metrics
	workers    int
	jobTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
}

func NewQueue(p QueueParams) *Queue {
	settings := p.Billing.Get().Notification
	size := settings.QueueSize
	if size <= 0 {
		size = 256
	}
	workers := settings.Workers
	if workers <= 0 {
		workers = 1
	}
	// Enough for every retry attempt plus backoff pauses.
	jobTimeout := time.Duration(max(settings.MaxRetries, 1))*settings.AttemptTimeout + 30*time.Second

	return &Queue{
		log:        p.Log.Named("notification.queue"),
		dispatcher: p.Dispatcher,
		metrics:    p.Metrics,
		workers:    workers,
		jobTimeout: jobTimeout,
		jobs:       make(chan job, size),
	}
}

func (q *Queue) Publish(ctx context.Context, n domain.Notification) {
	j := job{
		id:           ulid.Make().String(),
		requestID:    requestctx.RequestIDFromContext(ctx),
		notification: n,
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.log.Warn("queue closed, notification dropped", zap.String("job_id", j.id), zap.String("kind", string(n.Kind)))
		q.metrics.RecordNotification(string(n.Kind), "dropped")
		return
	}

	select {
	case q.jobs <- j:
	default:
		q.log.Warn("queue full, notification dropped", zap.String("job_id", j.id), zap.String("kind", string(n.Kind)))
		q.metrics.RecordNotification(string(n.Kind), "dropped")
	}
}

func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
}

// Stop refuses new jobs and waits for queued ones to finish or ctx to expire.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.deliver(j)
	}
}

func (q *Queue) deliver(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.jobTimeout)
	defer cancel()
	ctx = requestctx.WithRequestID(ctx, j.requestID)

	log := q.log.With(
		zap.String("job_id", j.id),
		zap.String("request_id", j.requestID),
		zap.String("kind", string(j.notification.Kind)),
	)

	err := Dispatch(ctx, q.dispatcher, j.notification)
	if err != nil {
		log.Error("notification failed", zap.Error(err))
		q.metrics.RecordNotification(string(j.notification.Kind), "failed")
		return
	}
	log.Debug("notification sent")
	q.metrics.RecordNotification(string(j.notification.Kind), "sent")
}

// Dispatch routes a notification to the matching Dispatcher method.
func Dispatch(ctx context.Context, d domain.Dispatcher, n domain.Notification) error {
	switch {
	case n.Kind == domain.KindInvoiceEmail && n.InvoiceEmail != nil:
		return d.SendInvoiceEmail(ctx, *n.InvoiceEmail)
	case n.Kind == domain.KindPaymentConfirmation && n.PaymentConfirmation != nil:
		return d.SendPaymentConfirmationEmail(ctx, *n.PaymentConfirmation)
	case n.Kind == domain.KindPaymentSMS && n.PaymentSMS != nil:
		return d.SendPaymentSMS(ctx, *n.PaymentSMS)
	}
	return ErrMalformedNotification
}
