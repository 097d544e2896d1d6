package enums

import "fmt"

// AuditEventType names an append-only audit record.
type AuditEventType string

const (
	AuditOrderExpired        AuditEventType = "order.expired"
	AuditPaymentCanceled     AuditEventType = "local.payment.canceled"
	AuditPaymentSynced       AuditEventType = "local.payment.synced"
	AuditReservationCreated  AuditEventType = "reservation.created"
	AuditReservationReleased AuditEventType = "reservation.released"
	AuditReservationExpired  AuditEventType = "reservation.expired"
	AuditStockAdjusted       AuditEventType = "stock.adjusted"
	AuditSlotConfigured      AuditEventType = "stock.slot_configured"
)

var validAuditEventTypes = []AuditEventType{
	AuditOrderExpired,
	AuditPaymentCanceled,
	AuditPaymentSynced,
	AuditReservationCreated,
	AuditReservationReleased,
	AuditReservationExpired,
	AuditStockAdjusted,
	AuditSlotConfigured,
}

// String implements fmt.Stringer.
func (a AuditEventType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditEventType.
func (a AuditEventType) IsValid() bool {
	for _, candidate := range validAuditEventTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditEventType converts raw input into a AuditEventType.
func ParseAuditEventType(value string) (AuditEventType, error) {
	for _, candidate := range validAuditEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit event type %q", value)
}
