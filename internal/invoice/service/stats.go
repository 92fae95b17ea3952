package service

import (
	"context"

	"github.com/smallbiznis/kinesio/internal/invoice/domain"
)

func (s *Service) GetInvoiceStats(ctx context.Context, req domain.StatsRequest) (domain.Stats, error) {
	if req.IssuedFrom != nil && req.IssuedTo != nil && req.IssuedFrom.After(*req.IssuedTo) {
		return domain.Stats{}, domain.ErrInvalidDateRange
	}

	rows, err := s.repo.TotalsByStatus(ctx, s.db, req.IssuedFrom, req.IssuedTo)
	if err != nil {
		return domain.Stats{}, err
	}

	var stats domain.Stats
	for _, row := range rows {
		stats.Total.Count += row.Count
		stats.Total.Amount += row.Total

		outstanding := row.Total - row.Paid
		switch row.PaymentStatus {
		case domain.StatusPending, domain.StatusPartial:
			stats.Pending.Count += row.Count
			stats.Pending.Amount += outstanding
		case domain.StatusPaid:
			stats.Paid.Count += row.Count
			stats.Paid.Amount += row.Total
		case domain.StatusOverdue:
			stats.Overdue.Count += row.Count
			stats.Overdue.Amount += outstanding
		}
	}
	return stats, nil
}
