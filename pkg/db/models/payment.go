package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
)

// Payment is the local mirror of a remote payment intent.
type Payment struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID               *uuid.UUID          `gorm:"column:order_id;type:uuid;index"`
	RemotePaymentIntentID *string             `gorm:"column:stripe_payment_intent_id"`
	Status                enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'requires_payment_method'"`
	Amount                decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null;default:0"`
	Currency              string              `gorm:"column:currency;not null;default:'eur'"`
	LastErrorMessage      *string             `gorm:"column:last_error_message"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// RemoteIntentID returns the provider intent id, or "" when none was recorded.
func (p Payment) RemoteIntentID() string {
	if p.RemotePaymentIntentID == nil {
		return ""
	}
	return *p.RemotePaymentIntentID
}
