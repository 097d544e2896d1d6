package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
)

// Order is a remote reservation of goods to be collected from a machine.
type Order struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	MachineID  *uuid.UUID        `gorm:"column:machine_id;type:uuid"`
	Status     enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	ExpiresAt  time.Time         `gorm:"column:expires_at;not null;index"`
	ExpiredAt  *time.Time        `gorm:"column:expired_at"`
	ArchivedAt *time.Time        `gorm:"column:archived_at"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Items   []OrderItem `gorm:"foreignKey:OrderID"`
	Payment *Payment    `gorm:"-"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is a product line on an order, bound to the slot it is dispensed from.
type OrderItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Quantity   int       `gorm:"column:quantity;not null"`
	SlotNumber int       `gorm:"column:slot_number;not null"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
