package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
)

// Alert is the single active operator alert for a machine. At most one row per
// machine has IsActive set.
type Alert struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	MachineID  uuid.UUID         `gorm:"column:machine_id;type:uuid;not null;index"`
	StockID    *uuid.UUID        `gorm:"column:stock_id;type:uuid"`
	Type       enums.AlertType   `gorm:"column:type;type:alert_type;not null"`
	Level      enums.AlertLevel  `gorm:"column:level;type:alert_level;not null"`
	Status     enums.AlertStatus `gorm:"column:status;type:alert_status;not null;default:'open'"`
	IsActive   bool              `gorm:"column:is_active;not null;default:true"`
	Message    string            `gorm:"column:message;not null"`
	Metadata   json.RawMessage   `gorm:"column:metadata;type:jsonb"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	ResolvedAt *time.Time        `gorm:"column:resolved_at"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Alert) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
