package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ServicePrice is a catalog entry. Entries are deactivated, never deleted, so invoice
// items keep a valid reference.
type ServicePrice struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	Code            string       `json:"code" gorm:"type:text;not null;uniqueIndex:ux_service_prices_code"`
	Name            string       `json:"name" gorm:"type:text;not null"`
	Category        string       `json:"category" gorm:"type:text;not null;index"`
	Description     *string      `json:"description,omitempty" gorm:"type:text"`
	BasePrice       int64        `json:"basePrice" gorm:"not null"`
	TaxRate         float64      `json:"taxRate" gorm:"type:numeric(5,4);not null"`
	TaxAmount       int64        `json:"taxAmount" gorm:"not null"`
	FinalPrice      int64        `json:"finalPrice" gorm:"not null"`
	DurationMinutes *int         `json:"durationMinutes,omitempty"`
	IsActive        bool         `json:"isActive" gorm:"not null;default:true;index"`
	CreatedAt       time.Time    `json:"createdAt" gorm:"not null"`
	UpdatedAt       time.Time    `json:"updatedAt" gorm:"not null"`
}

func (ServicePrice) TableName() string { return "service_prices" }
