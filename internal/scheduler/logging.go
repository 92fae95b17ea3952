package scheduler

import (
	"context"
	"time"

	"github.com/smallbiznis/kinesio/internal/observability/logger"
	"github.com/smallbiznis/kinesio/internal/requestctx"
	"go.uber.org/zap"
)

const systemActor = "scheduler"

type jobRun struct {
	job       string
	runID     string
	startedAt time.Time
	processed int64
}

type jobRunKey struct{}

func (r *jobRun) AddProcessed(count int64) {
	if r == nil || count <= 0 {
		return
	}
	r.processed += count
}

func (s *Scheduler) startJobRun(ctx context.Context, job string) (context.Context, *jobRun) {
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		startedAt: s.clock.Now(),
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	ctx = requestctx.WithRequestID(ctx, run.runID)
	ctx = requestctx.WithActor(ctx, requestctx.Actor{UserID: systemActor, Role: systemActor})
	return ctx, run
}

func jobRunFromContext(ctx context.Context) *jobRun {
	if run, ok := ctx.Value(jobRunKey{}).(*jobRun); ok {
		return run
	}
	return nil
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return logger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun, outcome string, err error) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.String("outcome", outcome),
		zap.Int64("processed", run.processed),
		zap.Duration("duration", s.clock.Now().Sub(run.startedAt)),
	}
	switch outcome {
	case outcomeError, outcomePanic:
		s.logger(ctx).Error("job failed", append(fields, zap.Error(err))...)
	case outcomeTimeout:
		s.logger(ctx).Warn("job timed out", append(fields, zap.Error(err))...)
	case outcomeSkipped:
		s.logger(ctx).Debug("job skipped", fields...)
	default:
		s.logger(ctx).Info("job finished", fields...)
	}
}
