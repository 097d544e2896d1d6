package enums

import "fmt"

// OrderStatus tracks the lifecycle of a vending order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusRequiresPayment OrderStatus = "requires_payment"
	OrderStatusPaid            OrderStatus = "paid"
	OrderStatusExpired         OrderStatus = "expired"
	OrderStatusUsed            OrderStatus = "used"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusFailed          OrderStatus = "failed"
	OrderStatusRefunded        OrderStatus = "refunded"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusRequiresPayment,
	OrderStatusPaid,
	OrderStatusExpired,
	OrderStatusUsed,
	OrderStatusCancelled,
	OrderStatusFailed,
	OrderStatusRefunded,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into a OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// AwaitingPayment reports whether the order is still in a pre-payment state and may expire.
func (o OrderStatus) AwaitingPayment() bool {
	return o == OrderStatusPending || o == OrderStatusRequiresPayment
}

// ExpirableOrderStatuses lists the statuses the expiration sweep may move to expired.
func ExpirableOrderStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusPending, OrderStatusRequiresPayment}
}
