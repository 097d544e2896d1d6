package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
)

// MachineSlotCapacity is the number of stock slots a vending machine exposes.
const MachineSlotCapacity = 6

// Machine is a physical vending machine.
type Machine struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name      string              `gorm:"column:name;not null"`
	Location  *string             `gorm:"column:location"`
	Status    enums.MachineStatus `gorm:"column:status;type:machine_status;not null;default:'incomplete'"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *Machine) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
