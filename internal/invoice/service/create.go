package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	auditdomain "github.com/smallbiznis/kinesio/internal/audit/domain"
	"github.com/smallbiznis/kinesio/internal/invoice/domain"
	"github.com/smallbiznis/kinesio/internal/observability/logger"
	patientdomain "github.com/smallbiznis/kinesio/internal/patient/domain"
	"github.com/smallbiznis/kinesio/internal/requestctx"
	servicepricedomain "github.com/smallbiznis/kinesio/internal/serviceprice/domain"
	"github.com/smallbiznis/kinesio/internal/tax"
	dbpkg "github.com/smallbiznis/kinesio/pkg/db"
	"github.com/smallbiznis/kinesio/pkg/rut"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type clientSnapshot struct {
	Name    *string
	RUT     *string
	Email   *string
	Address *string
	Phone   *string
}

func (s *Service) CreateInvoice(ctx context.Context, req domain.CreateInvoiceRequest) (*domain.Invoice, error) {
	docType, err := domain.ParseDocumentType(req.DocumentType)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, domain.ErrEmptyItems
	}

	client, err := s.resolveClient(ctx, req)
	if err != nil {
		return nil, err
	}
	if docType == domain.DocumentFactura && client.RUT == nil {
		return nil, domain.ErrInvalidClientRUT
	}

	items, lines, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	totals, err := s.calc.ComputeTotals(lines)
	if err != nil {
		return nil, err
	}
	if totals.Total == 0 {
		return nil, domain.ErrZeroTotal
	}

	now := s.clock.Now()
	dueDate, err := s.resolveDueDate(req.DueDate, now)
	if err != nil {
		return nil, err
	}

	inv := &domain.Invoice{
		ID:            s.genID.Generate(),
		DocumentType:  docType,
		PatientID:     req.PatientID,
		ClientName:    client.Name,
		ClientRUT:     client.RUT,
		ClientEmail:   client.Email,
		ClientAddress: client.Address,
		ClientPhone:   client.Phone,
		Subtotal:      totals.Subtotal,
		TaxRate:       s.calc.Rate().InexactFloat64(),
		Tax:           totals.Tax,
		Total:         totals.Total,
		PaidAmount:    0,
		PaymentStatus: domain.DeriveStatus(0, totals.Total, dueDate, now),
		IssuedAt:      now,
		DueDate:       dueDate,
		Notes:         optional(req.Notes),
		MPPaymentID:   optional(req.MPPaymentID),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if inv.PaymentStatus == domain.StatusPaid {
		inv.PaidAt = &now
	}
	if actor, ok := requestctx.ActorFromContext(ctx); ok {
		inv.CreatedBy = &actor.UserID
	}
	for i := range items {
		items[i].ID = s.genID.Generate()
		items[i].InvoiceID = inv.ID
		items[i].Position = i + 1
		items[i].Subtotal = totals.Lines[i]
		items[i].CreatedAt = now
	}
	inv.Items = items

	if err := s.insertWithNumber(ctx, inv, now); err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("number", inv.Number),
		zap.Int64("total", inv.Total),
	)
	s.metrics.RecordInvoiceCreated(string(inv.DocumentType))
	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionCreate,
		Resource:   auditInvoice,
		ResourceID: inv.ID.String(),
		PatientID:  inv.PatientID,
		Details: map[string]any{
			"number":       inv.Number,
			"documentType": string(inv.DocumentType),
			"total":        inv.Total,
			"clientRut":    derefString(inv.ClientRUT),
		},
	})
	s.notifyInvoice(ctx, inv)

	inv.Payments = nil
	return inv, nil
}

// insertWithNumber allocates the number and writes the invoice in one transaction,
// retrying with a fresh number when the unique index rejects it.
func (s *Service) insertWithNumber(ctx context.Context, inv *domain.Invoice, now time.Time) error {
	var lastErr error
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			number, err := s.allocator.Next(ctx, tx, inv.DocumentType, now)
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrNumberAllocation, err)
			}
			inv.Number = number
			return s.repo.Insert(ctx, tx, inv)
		})
		if err == nil {
			return nil
		}
		if !dbpkg.IsDuplicateKeyErr(err) {
			return err
		}
		lastErr = err
		logger.WithContext(ctx, s.log).Warn("invoice number collision, retrying",
			zap.String("number", inv.Number),
			zap.Int("attempt", attempt),
		)
	}
	return fmt.Errorf("%w: %v", domain.ErrNumberAllocation, lastErr)
}

func (s *Service) resolveClient(ctx context.Context, req domain.CreateInvoiceRequest) (clientSnapshot, error) {
	snap := clientSnapshot{
		Name:    optional(req.ClientName),
		Email:   optional(strings.ToLower(req.ClientEmail)),
		Address: optional(req.ClientAddress),
		Phone:   optional(req.ClientPhone),
	}
	if raw := strings.TrimSpace(req.ClientRUT); raw != "" {
		normalized, err := rut.Normalize(raw)
		if err != nil {
			return snap, domain.ErrInvalidClientRUT
		}
		snap.RUT = &normalized
	}

	if req.PatientID != nil {
		p, err := s.patientSvc.Get(ctx, patientdomain.GetRequest{ID: req.PatientID.String()})
		if err != nil {
			if errors.Is(err, patientdomain.ErrNotFound) {
				return snap, domain.ErrPatientNotFound
			}
			return snap, err
		}
		// Typed client fields win over the patient profile.
		if snap.Name == nil {
			name := p.FullName()
			snap.Name = &name
		}
		if snap.RUT == nil {
			snap.RUT = p.RUT
		}
		if snap.Email == nil {
			snap.Email = p.Email
		}
		if snap.Address == nil {
			snap.Address = p.Address
		}
		if snap.Phone == nil {
			snap.Phone = p.Phone
		}
	}

	if snap.Name == nil {
		return snap, domain.ErrMissingClient
	}
	return snap, nil
}

func (s *Service) resolveItems(ctx context.Context, reqs []domain.CreateItemRequest) ([]domain.InvoiceItem, []tax.LineInput, error) {
	items := make([]domain.InvoiceItem, 0, len(reqs))
	lines := make([]tax.LineInput, 0, len(reqs))

	for _, r := range reqs {
		description := strings.TrimSpace(r.Description)
		unitPrice := r.UnitPrice

		if r.ServicePriceID != nil {
			price, err := s.priceSvc.GetByID(ctx, *r.ServicePriceID)
			if err != nil {
				if errors.Is(err, servicepricedomain.ErrNotFound) {
					return nil, nil, domain.ErrServicePriceNotFound
				}
				return nil, nil, err
			}
			if !price.IsActive {
				return nil, nil, domain.ErrServicePriceNotFound
			}
			if unitPrice == 0 {
				unitPrice = price.BasePrice
			}
			if description == "" {
				description = price.Name
			}
		}
		if description == "" {
			return nil, nil, domain.ErrInvalidDescription
		}

		quantity := r.Quantity
		items = append(items, domain.InvoiceItem{
			Description:    description,
			Quantity:       quantity,
			UnitPrice:      unitPrice,
			Discount:       r.Discount,
			ServicePriceID: r.ServicePriceID,
		})
		lines = append(lines, tax.LineInput{
			Quantity:  quantity,
			UnitPrice: unitPrice,
			Discount:  r.Discount,
		})
	}
	return items, lines, nil
}

// resolveDueDate applies the configured default term. Due dates are whole days: the
// invoice becomes overdue once the due day has ended. A due date may fall on the issue
// day but not before it.
func (s *Service) resolveDueDate(requested *domain.Day, now time.Time) (*time.Time, error) {
	if requested == nil {
		days := s.billing.Get().DefaultDueDays
		if days <= 0 {
			return nil, nil
		}
		due := endOfDay(now.AddDate(0, 0, days))
		return &due, nil
	}
	due := endOfDay(requested.Time.UTC())
	if due.Before(now) {
		return nil, domain.ErrInvalidDueDate
	}
	return &due, nil
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

