package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Expense is a purchase document whose IVA is credited against sales IVA.
type Expense struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	SupplierName   string       `json:"supplierName" gorm:"type:text;not null"`
	SupplierRUT    *string      `json:"supplierRut,omitempty" gorm:"type:text"`
	DocumentNumber *string      `json:"documentNumber,omitempty" gorm:"type:text"`
	Category       string       `json:"category" gorm:"type:text;not null"`
	Description    *string      `json:"description,omitempty" gorm:"type:text"`
	NetAmount      int64        `json:"netAmount" gorm:"not null"`
	TaxAmount      int64        `json:"taxAmount" gorm:"not null"`
	TotalAmount    int64        `json:"totalAmount" gorm:"not null"`
	IssuedAt       time.Time    `json:"issuedAt" gorm:"not null;index"`
	CreatedBy      *string      `json:"createdBy,omitempty" gorm:"type:text"`
	CreatedAt      time.Time    `json:"createdAt" gorm:"not null"`
}

func (Expense) TableName() string { return "expenses" }

type CreateRequest struct {
	SupplierName   string    `json:"supplierName"`
	SupplierRUT    string    `json:"supplierRut"`
	DocumentNumber string    `json:"documentNumber"`
	Category       string    `json:"category"`
	Description    string    `json:"description"`
	NetAmount      int64     `json:"netAmount"`
	IssuedAt       time.Time `json:"issuedAt"`
}

// ListRequest filters by the half-open issue window [From, To).
type ListRequest struct {
	From *time.Time
	To   *time.Time
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Expense, error)
	List(ctx context.Context, req ListRequest) ([]Expense, error)
}

var (
	ErrInvalidSupplier  = errors.New("invalid_supplier")
	ErrInvalidRUT       = errors.New("invalid_supplier_rut")
	ErrInvalidCategory  = errors.New("invalid_category")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidIssueDate = errors.New("invalid_issue_date")
	ErrInvalidDateRange = errors.New("invalid_date_range")
)
