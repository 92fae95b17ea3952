package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/kinesio/internal/audit/domain"
	"github.com/smallbiznis/kinesio/internal/clock"
	"github.com/smallbiznis/kinesio/internal/config"
	"github.com/smallbiznis/kinesio/internal/invoice/domain"
	"github.com/smallbiznis/kinesio/internal/invoice/numbering"
	"github.com/smallbiznis/kinesio/internal/invoice/repository"
	notificationdomain "github.com/smallbiznis/kinesio/internal/notification/domain"
	"github.com/smallbiznis/kinesio/internal/observability/metrics"
	patientdomain "github.com/smallbiznis/kinesio/internal/patient/domain"
	"github.com/smallbiznis/kinesio/internal/providers/pdf"
	servicepricedomain "github.com/smallbiznis/kinesio/internal/serviceprice/domain"
	"github.com/smallbiznis/kinesio/internal/tax"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500

	// Number allocation is serialized by the sequence row lock; a duplicate can still
	// surface when the sequence lags behind rows written by another path.
	maxCreateAttempts = 3

	auditInvoice = "invoice"
	auditPayment = "payment"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       repository.Repository
	Allocator  *numbering.Allocator
	Calc       *tax.Calculator
	Billing    *config.BillingConfigHolder
	AuditSvc   auditdomain.Service
	Publisher  notificationdomain.Publisher
	PatientSvc patientdomain.Service
	PriceSvc   servicepricedomain.Service
	Renderer   pdf.Renderer
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       repository.Repository
	allocator  *numbering.Allocator
	calc       *tax.Calculator
	billing    *config.BillingConfigHolder
	auditSvc   auditdomain.Service
	publisher  notificationdomain.Publisher
	patientSvc patientdomain.Service
	priceSvc   servicepricedomain.Service
	renderer   pdf.Renderer
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("invoice.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		allocator:  p.Allocator,
		calc:       p.Calc,
		billing:    p.Billing,
		auditSvc:   p.AuditSvc,
		publisher:  p.Publisher,
		patientSvc: p.PatientSvc,
		priceSvc:   p.PriceSvc,
		renderer:   p.Renderer,
		metrics:    p.Metrics,
	}
}

func (s *Service) GetInvoice(ctx context.Context, id snowflake.ID) (*domain.Invoice, error) {
	inv, err := s.repo.FindByID(ctx, s.db, id, false)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

func (s *Service) ListInvoices(ctx context.Context, req domain.ListInvoicesRequest) ([]domain.Invoice, error) {
	if req.IssuedFrom != nil && req.IssuedTo != nil && req.IssuedFrom.After(*req.IssuedTo) {
		return nil, domain.ErrInvalidDateRange
	}

	filter := repository.Filter{
		PatientID:   req.PatientID,
		MPPaymentID: strings.TrimSpace(req.MPPaymentID),
		IssuedFrom:  req.IssuedFrom,
		IssuedTo:    req.IssuedTo,
		Limit:       normalizeLimit(req.Limit),
	}
	if raw := strings.TrimSpace(req.PaymentStatus); raw != "" {
		status, err := domain.ParsePaymentStatus(raw)
		if err != nil {
			return nil, err
		}
		filter.PaymentStatus = status
	}

	return s.repo.List(ctx, s.db, filter)
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}

func optional(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}
