package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stock is one product slot on a machine. Quantity is the on-hand count.
type Stock struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	MachineID    uuid.UUID `gorm:"column:machine_id;type:uuid;not null;index"`
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Quantity     int       `gorm:"column:quantity;not null;default:0"`
	SlotNumber   int       `gorm:"column:slot_number;not null"`
	MaxCapacity  int       `gorm:"column:max_capacity;not null"`
	LowThreshold int       `gorm:"column:low_threshold;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Stock) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Empty reports whether the slot has nothing left to sell.
func (s Stock) Empty() bool {
	return s.Quantity == 0
}

// Low reports whether the slot still has units but sits at or below its threshold.
func (s Stock) Low() bool {
	return s.Quantity > 0 && s.Quantity <= s.LowThreshold
}
