package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kinesio"

// Metrics exposes ledger-level instruments. A nil *Metrics is a valid no-op.
type Metrics struct {
	invoicesCreated    *prometheus.CounterVec
	invoicesCancelled  prometheus.Counter
	paymentsRegistered *prometheus.CounterVec
	paymentAmount      *prometheus.CounterVec
	notifications      *prometheus.CounterVec
	overduePromoted    prometheus.Counter
	jobRuns            *prometheus.CounterVec
	jobDuration        *prometheus.HistogramVec
}

// New registers the ledger instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		invoicesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_created_total",
			Help:      "Invoices issued, by document type.",
		}, []string{"document_type"}),
		invoicesCancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_cancelled_total",
			Help:      "Invoices cancelled.",
		}),
		paymentsRegistered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_registered_total",
			Help:      "Payments registered, by method and resulting invoice status.",
		}, []string{"method", "status"}),
		paymentAmount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_amount_clp_total",
			Help:      "Sum of registered payment amounts in CLP.",
		}, []string{"method"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		overduePromoted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_overdue_promoted_total",
			Help:      "Invoices moved to OVERDUE by the sweep.",
		}),
		jobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduler job runs, by job and outcome.",
		}, []string{"job", "outcome"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Scheduler job duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
	}
}

func (m *Metrics) RecordInvoiceCreated(documentType string) {
	if m == nil {
		return
	}
	m.invoicesCreated.WithLabelValues(normalize(documentType)).Inc()
}

func (m *Metrics) RecordInvoiceCancelled() {
	if m == nil {
		return
	}
	m.invoicesCancelled.Inc()
}

func (m *Metrics) RecordPayment(method, status string, amount int64) {
	if m == nil {
		return
	}
	m.paymentsRegistered.WithLabelValues(normalize(method), normalize(status)).Inc()
	if amount > 0 {
		m.paymentAmount.WithLabelValues(normalize(method)).Add(float64(amount))
	}
}

func (m *Metrics) RecordNotification(kind, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(normalize(kind), normalize(outcome)).Inc()
}

func (m *Metrics) RecordOverduePromoted(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.overduePromoted.Add(float64(n))
}

func (m *Metrics) RecordJobRun(job, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(normalize(job), normalize(outcome)).Inc()
	m.jobDuration.WithLabelValues(normalize(job)).Observe(duration.Seconds())
}

func normalize(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
