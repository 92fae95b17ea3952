package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/kinesio/internal/audit/domain"
	"github.com/smallbiznis/kinesio/internal/clock"
	"github.com/smallbiznis/kinesio/internal/expense/domain"
	"github.com/smallbiznis/kinesio/internal/requestctx"
	"github.com/smallbiznis/kinesio/internal/tax"
	"github.com/smallbiznis/kinesio/pkg/repository"
	"github.com/smallbiznis/kinesio/pkg/rut"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     repository.Repository[domain.Expense]
	Calc     *tax.Calculator
	AuditSvc auditdomain.Service
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     repository.Repository[domain.Expense]
	calc     *tax.Calculator
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("expense.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		calc:     p.Calc,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Expense, error) {
	supplier := strings.TrimSpace(req.SupplierName)
	if supplier == "" {
		return nil, domain.ErrInvalidSupplier
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, domain.ErrInvalidCategory
	}
	if req.NetAmount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if req.IssuedAt.IsZero() {
		return nil, domain.ErrInvalidIssueDate
	}

	var supplierRUT *string
	if raw := strings.TrimSpace(req.SupplierRUT); raw != "" {
		normalized, err := rut.Normalize(raw)
		if err != nil {
			return nil, domain.ErrInvalidRUT
		}
		supplierRUT = &normalized
	}

	taxAmount := s.calc.TaxOn(req.NetAmount)
	e := &domain.Expense{
		ID:             s.genID.Generate(),
		SupplierName:   supplier,
		SupplierRUT:    supplierRUT,
		DocumentNumber: optional(req.DocumentNumber),
		Category:       category,
		Description:    optional(req.Description),
		NetAmount:      req.NetAmount,
		TaxAmount:      taxAmount,
		TotalAmount:    req.NetAmount + taxAmount,
		IssuedAt:       req.IssuedAt.UTC(),
		CreatedAt:      s.clock.Now(),
	}
	if actor, ok := requestctx.ActorFromContext(ctx); ok {
		e.CreatedBy = &actor.UserID
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionCreate,
		Resource:   "expense",
		ResourceID: e.ID.String(),
		Details: map[string]any{
			"supplier":  e.SupplierName,
			"netAmount": e.NetAmount,
			"taxAmount": e.TaxAmount,
		},
	})
	return e, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Expense, error) {
	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return nil, domain.ErrInvalidDateRange
	}

	opts := []repository.QueryOption{repository.OrderBy("issued_at asc, id asc")}
	if req.From != nil {
		opts = append(opts, repository.Where("issued_at >= ?", req.From.UTC()))
	}
	if req.To != nil {
		opts = append(opts, repository.Where("issued_at < ?", req.To.UTC()))
	}

	items, err := s.repo.Find(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Expense, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func optional(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}
