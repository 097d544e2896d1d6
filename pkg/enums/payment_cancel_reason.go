package enums

import "fmt"

// PaymentCancelReason records why a local payment was closed by a sweep.
type PaymentCancelReason string

const (
	PaymentCancelReasonNoRemoteIntent PaymentCancelReason = "no_stripe_pi"
	PaymentCancelReasonRemoteNotFound PaymentCancelReason = "stripe_not_found"
	PaymentCancelReasonAbandoned      PaymentCancelReason = "abandoned"
	PaymentCancelReasonCancelFailed   PaymentCancelReason = "cancel_failed"
	PaymentCancelReasonRemoteError    PaymentCancelReason = "stripe_error"
	PaymentCancelReasonOrderExpired   PaymentCancelReason = "order_expired"
)

var validPaymentCancelReasons = []PaymentCancelReason{
	PaymentCancelReasonNoRemoteIntent,
	PaymentCancelReasonRemoteNotFound,
	PaymentCancelReasonAbandoned,
	PaymentCancelReasonCancelFailed,
	PaymentCancelReasonRemoteError,
	PaymentCancelReasonOrderExpired,
}

// String implements fmt.Stringer.
func (p PaymentCancelReason) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentCancelReason.
func (p PaymentCancelReason) IsValid() bool {
	for _, candidate := range validPaymentCancelReasons {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentCancelReason converts raw input into a PaymentCancelReason.
func ParsePaymentCancelReason(value string) (PaymentCancelReason, error) {
	for _, candidate := range validPaymentCancelReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment cancel reason %q", value)
}
