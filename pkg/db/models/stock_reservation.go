package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
)

// StockReservation earmarks slot quantity for an order until payment completes.
type StockReservation struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	StockID    uuid.UUID               `gorm:"column:stock_id;type:uuid;not null;index"`
	OrderID    uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	Quantity   int                     `gorm:"column:quantity;not null"`
	Status     enums.ReservationStatus `gorm:"column:status;type:reservation_status;not null;default:'active'"`
	ReservedAt time.Time               `gorm:"column:reserved_at;not null"`
	ExpiresAt  time.Time               `gorm:"column:expires_at;not null"`
	ReleasedAt *time.Time              `gorm:"column:released_at"`
	UpdatedAt  time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *StockReservation) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
