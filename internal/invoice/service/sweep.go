package service

import (
	"context"
	"time"

	"github.com/smallbiznis/kinesio/internal/observability/logger"
	"go.uber.org/zap"
)

// SweepOverdue moves unsettled invoices past their due date to OVERDUE.
func (s *Service) SweepOverdue(ctx context.Context, now time.Time) (int64, error) {
	promoted, err := s.repo.MarkOverdue(ctx, s.db, now.UTC())
	if err != nil {
		return 0, err
	}
	if promoted > 0 {
		logger.WithContext(ctx, s.log).Info("invoices marked overdue", zap.Int64("count", promoted))
	}
	s.metrics.RecordOverduePromoted(promoted)
	return promoted, nil
}
