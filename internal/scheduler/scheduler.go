// Package scheduler runs the periodic ledger jobs. Today that is the overdue
// sweep, which promotes unpaid invoices past their due date to OVERDUE.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/kinesio/internal/clock"
	"github.com/smallbiznis/kinesio/internal/config"
	invoicedomain "github.com/smallbiznis/kinesio/internal/invoice/domain"
	"github.com/smallbiznis/kinesio/internal/observability/metrics"
	"github.com/smallbiznis/kinesio/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobSweepOverdue = "sweep_overdue"

	lockKeyPrefix = "kinesio:scheduler:"

	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeTimeout = "timeout"
	outcomeSkipped = "skipped"
	outcomePanic   = "panic"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	GenID      *snowflake.Node
	InvoiceSvc invoicedomain.Service
	Billing    *config.BillingConfigHolder
	Locker     *ratelimit.Locker `optional:"true"`
	Metrics    *metrics.Metrics  `optional:"true"`
	Config     Config            `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	genID      *snowflake.Node
	invoiceSvc invoicedomain.Service
	billing    *config.BillingConfigHolder
	locker     *ratelimit.Locker
	metrics    *metrics.Metrics

	cron *cron.Cron
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.GenID == nil || p.InvoiceSvc == nil || p.Billing == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		genID:      p.GenID,
		invoiceSvc: p.InvoiceSvc,
		billing:    p.Billing,
		locker:     p.Locker,
		metrics:    p.Metrics,
		cron:       cron.New(cron.WithLocation(time.UTC)),
	}, nil
}

// Start registers the jobs with the schedules current at call time and starts the
// cron loop. Schedule changes in the billing config take effect on restart.
func (s *Scheduler) Start() error {
	schedule := s.billing.Get().OverdueSweepSchedule
	if _, err := s.cron.AddFunc(schedule, func() {
		_ = s.RunSweepOverdue(context.Background())
	}); err != nil {
		return fmt.Errorf("schedule %s %q: %w", JobSweepOverdue, schedule, err)
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.String("job", JobSweepOverdue), zap.String("schedule", schedule))
	return nil
}

// Stop waits for running jobs or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunSweepOverdue runs the overdue sweep once, guarded by the cluster lease when
// Redis is configured. Deadline expiry is reported as a timeout, not an error.
func (s *Scheduler) RunSweepOverdue(ctx context.Context) error {
	return s.runJob(ctx, JobSweepOverdue, s.cfg.SweepTimeout, s.sweepOverdue)
}

func (s *Scheduler) sweepOverdue(ctx context.Context) error {
	promoted, err := s.invoiceSvc.SweepOverdue(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	jobRunFromContext(ctx).AddProcessed(promoted)
	return nil
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	ctx, run := s.startJobRun(ctx, name)

	outcome := outcomeOK
	defer func() {
		if r := recover(); r != nil {
			outcome = outcomePanic
			err = fmt.Errorf("%s: panic: %v", name, r)
		}
		s.metrics.RecordJobRun(name, outcome, s.clock.Now().Sub(run.startedAt))
		s.logJobFinish(ctx, run, outcome, err)
	}()

	release, acquired, lockErr := s.acquire(ctx, name)
	if lockErr != nil {
		outcome = outcomeError
		return fmt.Errorf("%s: lock: %w", name, lockErr)
	}
	if !acquired {
		outcome = outcomeSkipped
		return nil
	}
	defer release()

	err = fn(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		outcome = outcomeTimeout
		return nil
	default:
		outcome = outcomeError
		return fmt.Errorf("%s: %w", name, err)
	}
}

// acquire takes the job lease. Without Redis every instance runs the job; the
// sweep is idempotent so concurrent runs only waste work.
func (s *Scheduler) acquire(ctx context.Context, name string) (func(), bool, error) {
	if !s.locker.Enabled() {
		return func() {}, true, nil
	}
	key := lockKeyPrefix + name
	lease, err := s.locker.Acquire(ctx, key, s.cfg.LockTTL)
	if err != nil || lease == nil {
		return nil, false, err
	}
	return func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger(ctx).Warn("release job lock failed", zap.String("job", name), zap.Error(err))
		}
	}, true, nil
}
