package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/kinesio/internal/audit/domain"
	"github.com/smallbiznis/kinesio/internal/clock"
	"github.com/smallbiznis/kinesio/internal/observability/logger"
	"github.com/smallbiznis/kinesio/internal/serviceprice/domain"
	"github.com/smallbiznis/kinesio/internal/tax"
	dbpkg "github.com/smallbiznis/kinesio/pkg/db"
	"github.com/smallbiznis/kinesio/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const auditResource = "service_price"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     repository.Repository[domain.ServicePrice]
	Calc     *tax.Calculator
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     repository.Repository[domain.ServicePrice]
	calc     *tax.Calculator
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("serviceprice.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		calc:     p.Calc,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.ServicePrice, error) {
	name := strings.TrimSpace(req.Name)
	code := slug.Make(name)
	if name == "" || code == "" {
		return nil, domain.ErrInvalidName
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, domain.ErrInvalidCategory
	}
	if err := validateDuration(req.DurationMinutes); err != nil {
		return nil, err
	}
	breakdown, err := s.calc.PriceFromBase(req.BasePrice)
	if err != nil {
		return nil, domain.ErrInvalidBasePrice
	}

	existing, err := s.repo.FindOne(ctx, &domain.ServicePrice{Code: code})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrConflict
	}

	now := s.clock.Now()
	entity := &domain.ServicePrice{
		ID:              s.genID.Generate(),
		Code:            code,
		Name:            name,
		Category:        category,
		Description:     trimmedOrNil(req.Description),
		BasePrice:       breakdown.BasePrice,
		TaxRate:         breakdown.TaxRate,
		TaxAmount:       breakdown.TaxAmount,
		FinalPrice:      breakdown.FinalPrice,
		DurationMinutes: req.DurationMinutes,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, entity); err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionCreate,
		Resource:   auditResource,
		ResourceID: entity.ID.String(),
		Details: map[string]any{
			"code":       entity.Code,
			"basePrice":  entity.BasePrice,
			"finalPrice": entity.FinalPrice,
		},
	})
	return entity, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.ServicePrice, error) {
	opts := []repository.QueryOption{repository.OrderBy("category asc, name asc")}
	if req.ActiveOnly {
		opts = append(opts, repository.Where("is_active = ?", true))
	}
	filter := &domain.ServicePrice{Category: strings.TrimSpace(req.Category)}

	items, err := s.repo.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ServicePrice, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.ServicePrice, error) {
	priceID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, priceID)
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.ServicePrice, error) {
	entity, err := s.repo.FindOne(ctx, &domain.ServicePrice{ID: id})
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, domain.ErrNotFound
	}
	return entity, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.ServicePrice, error) {
	entity, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		code := slug.Make(name)
		if name == "" || code == "" {
			return nil, domain.ErrInvalidName
		}
		if code != entity.Code {
			clash, err := s.repo.FindOne(ctx, &domain.ServicePrice{Code: code})
			if err != nil {
				return nil, err
			}
			if clash != nil {
				return nil, domain.ErrConflict
			}
			fields["code"] = code
		}
		fields["name"] = name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return nil, domain.ErrInvalidCategory
		}
		fields["category"] = category
	}
	if req.Description != nil {
		fields["description"] = trimmedOrNil(req.Description)
	}
	if req.DurationMinutes != nil {
		if err := validateDuration(req.DurationMinutes); err != nil {
			return nil, err
		}
		fields["duration_minutes"] = *req.DurationMinutes
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}

	// Prices are recomputed so a changed IVA rate is picked up on any edit.
	base := entity.BasePrice
	if req.BasePrice != nil {
		base = *req.BasePrice
	}
	breakdown, err := s.calc.PriceFromBase(base)
	if err != nil {
		return nil, domain.ErrInvalidBasePrice
	}
	fields["base_price"] = breakdown.BasePrice
	fields["tax_rate"] = breakdown.TaxRate
	fields["tax_amount"] = breakdown.TaxAmount
	fields["final_price"] = breakdown.FinalPrice
	fields["updated_at"] = s.clock.Now()

	if err := s.repo.Update(ctx, entity.ID, fields); err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}

	updated, err := s.GetByID(ctx, entity.ID)
	if err != nil {
		return nil, err
	}
	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionUpdate,
		Resource:   auditResource,
		ResourceID: updated.ID.String(),
		Details:    changedFields(fields),
	})
	return updated, nil
}

func (s *Service) Deactivate(ctx context.Context, id string) (*domain.ServicePrice, error) {
	entity, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entity.IsActive {
		return entity, nil
	}

	now := s.clock.Now()
	if err := s.repo.Update(ctx, entity.ID, map[string]any{"is_active": false, "updated_at": now}); err != nil {
		return nil, err
	}
	entity.IsActive = false
	entity.UpdatedAt = now

	logger.WithContext(ctx, s.log).Info("service price deactivated", zap.String("code", entity.Code))
	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionDelete,
		Resource:   auditResource,
		ResourceID: entity.ID.String(),
		Details:    map[string]any{"code": entity.Code, "soft": true},
	})
	return entity, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func validateDuration(minutes *int) error {
	if minutes != nil && *minutes <= 0 {
		return domain.ErrInvalidDuration
	}
	return nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func changedFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "updated_at" {
			continue
		}
		out[k] = v
	}
	return out
}

