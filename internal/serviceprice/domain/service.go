package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*ServicePrice, error)
	List(ctx context.Context, req ListRequest) ([]ServicePrice, error)
	Get(ctx context.Context, id string) (*ServicePrice, error)
	GetByID(ctx context.Context, id snowflake.ID) (*ServicePrice, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*ServicePrice, error)
	Deactivate(ctx context.Context, id string) (*ServicePrice, error)
}

type CreateRequest struct {
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	Description     *string `json:"description"`
	BasePrice       int64   `json:"basePrice"`
	DurationMinutes *int    `json:"durationMinutes"`
}

// UpdateRequest changes only the fields that are set.
type UpdateRequest struct {
	Name            *string `json:"name"`
	Category        *string `json:"category"`
	Description     *string `json:"description"`
	BasePrice       *int64  `json:"basePrice"`
	DurationMinutes *int    `json:"durationMinutes"`
	IsActive        *bool   `json:"isActive"`
}

type ListRequest struct {
	ActiveOnly bool
	Category   string
}

var (
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidCategory  = errors.New("invalid_category")
	ErrInvalidBasePrice = errors.New("invalid_base_price")
	ErrInvalidDuration  = errors.New("invalid_duration")
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("service_price_not_found")
	ErrConflict         = errors.New("service_price_code_conflict")
)
