package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Action string

const (
	ActionView   Action = "VIEW"
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionExport Action = "EXPORT"
)

func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionCreate, ActionUpdate, ActionDelete, ActionExport:
		return true
	}
	return false
}

// AuditLog is an append-only compliance record.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID     *string           `gorm:"type:text" json:"userId,omitempty"`
	Action     Action            `gorm:"type:text;not null;index" json:"action"`
	Resource   string            `gorm:"type:text;not null;index:idx_audit_resource" json:"resource"`
	ResourceID *string           `gorm:"type:text;index:idx_audit_resource" json:"resourceId,omitempty"`
	PatientID  *snowflake.ID     `gorm:"index" json:"patientId,omitempty"`
	Details    datatypes.JSONMap `gorm:"type:jsonb" json:"details,omitempty"`
	IPAddress  *string           `gorm:"type:text" json:"ipAddress,omitempty"`
	UserAgent  *string           `gorm:"type:text" json:"userAgent,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"createdAt"`
}

func (AuditLog) TableName() string { return "audit_logs" }
