package enums

import "fmt"

// AuditAggregateType identifies the record an audit event is keyed by.
type AuditAggregateType string

const (
	AggregateOrder       AuditAggregateType = "order"
	AggregatePayment     AuditAggregateType = "payment"
	AggregateStock       AuditAggregateType = "stock"
	AggregateReservation AuditAggregateType = "reservation"
	AggregateMachine     AuditAggregateType = "machine"
)

var validAuditAggregateTypes = []AuditAggregateType{
	AggregateOrder,
	AggregatePayment,
	AggregateStock,
	AggregateReservation,
	AggregateMachine,
}

// String implements fmt.Stringer.
func (a AuditAggregateType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAggregateType.
func (a AuditAggregateType) IsValid() bool {
	for _, candidate := range validAuditAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAggregateType converts raw input into a AuditAggregateType.
func ParseAuditAggregateType(value string) (AuditAggregateType, error) {
	for _, candidate := range validAuditAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}
