package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kinesio/pkg/db/pagination"
	"gorm.io/gorm"
)

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidResource  = errors.New("invalid_resource")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)

// Entry describes one auditable event. Actor, IP and user agent are filled from the
// request context when left empty.
type Entry struct {
	UserID     string
	Action     Action
	Resource   string
	ResourceID string
	PatientID  *snowflake.ID
	Details    map[string]any
}

type ListRequest struct {
	Resource   string
	ResourceID string
	PatientID  *snowflake.ID
	Action     Action
	StartAt    *time.Time
	EndAt      *time.Time
	pagination.Pagination
}

type ListResponse struct {
	AuditLogs []AuditLog          `json:"auditLogs"`
	PageInfo  pagination.PageInfo `json:"pageInfo"`
}

// Service records audit entries. Record never fails its caller: write errors are
// logged and dropped so that business operations are not blocked by auditing.
type Service interface {
	Record(ctx context.Context, entry Entry)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

type ListFilter struct {
	Resource   string
	ResourceID string
	PatientID  *snowflake.ID
	Action     Action
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *pagination.Cursor
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, error)
}
