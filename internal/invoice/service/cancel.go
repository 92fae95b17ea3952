package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/kinesio/internal/audit/domain"
	"github.com/smallbiznis/kinesio/internal/invoice/domain"
	"github.com/smallbiznis/kinesio/internal/observability/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const cancelMarker = "[ANULADA]"

func (s *Service) CancelInvoice(ctx context.Context, id snowflake.ID, reason string) (*domain.Invoice, error) {
	reason = strings.TrimSpace(reason)

	var inv *domain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.FindByID(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if locked == nil {
			return domain.ErrNotFound
		}
		switch locked.PaymentStatus {
		case domain.StatusCancelled:
			return domain.ErrInvoiceCancelled
		case domain.StatusPaid:
			return domain.ErrInvoiceAlreadyPaid
		}

		now := s.clock.Now()
		locked.PaymentStatus = domain.StatusCancelled
		locked.CancelledAt = &now
		locked.UpdatedAt = now
		notes := appendCancelNote(locked.Notes, reason)
		locked.Notes = &notes

		if err := s.repo.Cancel(ctx, tx, locked); err != nil {
			return err
		}
		inv = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("invoice cancelled",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("number", inv.Number),
	)
	s.metrics.RecordInvoiceCancelled()
	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionUpdate,
		Resource:   auditInvoice,
		ResourceID: inv.ID.String(),
		PatientID:  inv.PatientID,
		Details: map[string]any{
			"number": inv.Number,
			"status": string(domain.StatusCancelled),
			"reason": reason,
		},
	})
	return inv, nil
}

func appendCancelNote(existing *string, reason string) string {
	note := cancelMarker
	if reason != "" {
		note += " " + reason
	}
	if existing == nil || strings.TrimSpace(*existing) == "" {
		return note
	}
	return strings.TrimRight(*existing, " \n") + "\n" + note
}
