package service

import (
	"context"

	auditdomain "github.com/smallbiznis/kinesio/internal/audit/domain"
	"github.com/smallbiznis/kinesio/internal/invoice/domain"
	"github.com/smallbiznis/kinesio/internal/observability/logger"
	paymentdomain "github.com/smallbiznis/kinesio/internal/payment/domain"
	"github.com/smallbiznis/kinesio/internal/requestctx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterPayment records a payment and recomputes the invoice status under a row lock,
// so concurrent payments against the same invoice never lose an update.
func (s *Service) RegisterPayment(ctx context.Context, req domain.RegisterPaymentRequest) (*domain.PaymentResult, error) {
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	method, err := paymentdomain.ParseMethod(req.Method)
	if err != nil {
		return nil, err
	}

	var (
		inv     *domain.Invoice
		payment paymentdomain.Payment
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.FindByID(ctx, tx, req.InvoiceID, true)
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

		paid, err := s.repo.SumPayments(ctx, tx, locked.ID)
		if err != nil {
			return err
		}
		if req.Amount > locked.Total-paid {
			return domain.ErrOverpayment
		}

		now := s.clock.Now()
		payment = paymentdomain.Payment{
			ID:        s.genID.Generate(),
			InvoiceID: locked.ID,
			Amount:    req.Amount,
			Method:    method,
			Reference: optional(req.Reference),
			Notes:     optional(req.Notes),
			PaidAt:    now,
			CreatedAt: now,
		}
		if actor, ok := requestctx.ActorFromContext(ctx); ok {
			payment.RecordedBy = &actor.UserID
		}
		if err := s.repo.InsertPayment(ctx, tx, &payment); err != nil {
			return err
		}

		locked.PaidAmount = paid + req.Amount
		locked.PaymentStatus = domain.DeriveStatus(locked.PaidAmount, locked.Total, locked.DueDate, now)
		if locked.PaymentStatus == domain.StatusPaid {
			locked.PaidAt = &now
		}
		locked.UpdatedAt = now
		if err := s.repo.UpdatePaymentState(ctx, tx, locked); err != nil {
			return err
		}
		locked.Payments = append(locked.Payments, payment)
		inv = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("payment registered",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.Int64("amount", payment.Amount),
		zap.String("status", string(inv.PaymentStatus)),
	)
	s.metrics.RecordPayment(string(method), string(inv.PaymentStatus), payment.Amount)
	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionCreate,
		Resource:   auditPayment,
		ResourceID: payment.ID.String(),
		PatientID:  inv.PatientID,
		Details: map[string]any{
			"invoiceId":  inv.ID.String(),
			"number":     inv.Number,
			"amount":     payment.Amount,
			"method":     string(method),
			"paidAmount": inv.PaidAmount,
			"status":     string(inv.PaymentStatus),
		},
	})
	s.notifyPayment(ctx, inv, payment)

	return &domain.PaymentResult{Invoice: *inv, Payment: payment}, nil
}
