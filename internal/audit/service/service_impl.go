package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kinesio/internal/audit/domain"
	"github.com/smallbiznis/kinesio/internal/audit/masking"
	"github.com/smallbiznis/kinesio/internal/clock"
	"github.com/smallbiznis/kinesio/internal/observability/logger"
	"github.com/smallbiznis/kinesio/internal/requestctx"
	"github.com/smallbiznis/kinesio/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, entry domain.Entry) {
	log := logger.WithContext(ctx, s.log)
	if !entry.Action.Valid() {
		log.Warn("audit entry dropped", zap.String("action", string(entry.Action)), zap.Error(domain.ErrInvalidAction))
		return
	}
	resource := strings.TrimSpace(entry.Resource)
	if resource == "" {
		log.Warn("audit entry dropped", zap.Error(domain.ErrInvalidResource))
		return
	}

	details := masking.MaskDetails(entry.Details)
	if requestID := requestctx.RequestIDFromContext(ctx); requestID != "" {
		if details == nil {
			details = map[string]any{}
		}
		details["request_id"] = requestID
	}

	row := domain.AuditLog{
		ID:         s.genID.Generate(),
		UserID:     s.resolveUser(ctx, entry.UserID),
		Action:     entry.Action,
		Resource:   resource,
		ResourceID: optional(entry.ResourceID),
		PatientID:  entry.PatientID,
		CreatedAt:  s.clock.Now(),
	}
	if details != nil {
		row.Details = datatypes.JSONMap(details)
	}
	client := requestctx.ClientFromContext(ctx)
	row.IPAddress = optional(client.IPAddress)
	row.UserAgent = optional(client.UserAgent)

	if err := s.repo.Insert(ctx, s.db, &row); err != nil {
		log.Error("failed to write audit log",
			zap.String("action", string(entry.Action)),
			zap.String("resource", resource),
			zap.Error(err),
		)
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return domain.ListResponse{}, domain.ErrInvalidTimeRange
	}
	if req.Action != "" && !req.Action.Valid() {
		return domain.ListResponse{}, domain.ErrInvalidAction
	}

	var cursor *pagination.Cursor
	if token := strings.TrimSpace(req.PageToken); token != "" {
		decoded, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListResponse{}, err
		}
		cursor = decoded
	}

	limit := pagination.NormalizePageSize(req.PageSize)
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Resource:   req.Resource,
		ResourceID: req.ResourceID,
		PatientID:  req.PatientID,
		Action:     req.Action,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Cursor:     cursor,
		Limit:      limit,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	page, info := pagination.Trim(items, limit, func(item domain.AuditLog) pagination.Cursor {
		return pagination.Cursor{ID: item.ID.Int64(), CreatedAt: item.CreatedAt}
	})
	return domain.ListResponse{AuditLogs: page, PageInfo: info}, nil
}

func (s *Service) resolveUser(ctx context.Context, userID string) *string {
	if value := optional(userID); value != nil {
		return value
	}
	if actor, ok := requestctx.ActorFromContext(ctx); ok {
		return &actor.UserID
	}
	return nil
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
