package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
)

// AuditEvent is an append-only record of a reconciliation side effect.
type AuditEvent struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	EventType     enums.AuditEventType     `gorm:"column:event_type;not null;index"`
	AggregateType enums.AuditAggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID                `gorm:"column:aggregate_id;type:uuid;not null"`
	OrderID       *uuid.UUID               `gorm:"column:order_id;type:uuid;index"`
	Payload       json.RawMessage          `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
}

func (e *AuditEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// All lists every model owned by the reconciliation engine, in dependency order.
func All() []any {
	return []any{
		&Machine{},
		&Stock{},
		&Order{},
		&OrderItem{},
		&StockReservation{},
		&Payment{},
		&Alert{},
		&AuditEvent{},
	}
}
