package enums

import "fmt"

// PaymentStatus mirrors the payment provider intent status vocabulary.
type PaymentStatus string

const (
	PaymentStatusRequiresPaymentMethod PaymentStatus = "requires_payment_method"
	PaymentStatusRequiresConfirmation  PaymentStatus = "requires_confirmation"
	PaymentStatusRequiresAction        PaymentStatus = "requires_action"
	PaymentStatusProcessing            PaymentStatus = "processing"
	PaymentStatusRequiresCapture       PaymentStatus = "requires_capture"
	PaymentStatusSucceeded             PaymentStatus = "succeeded"
	PaymentStatusCanceled              PaymentStatus = "canceled"
	PaymentStatusFailed                PaymentStatus = "failed"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusRequiresPaymentMethod,
	PaymentStatusRequiresConfirmation,
	PaymentStatusRequiresAction,
	PaymentStatusProcessing,
	PaymentStatusRequiresCapture,
	PaymentStatusSucceeded,
	PaymentStatusCanceled,
	PaymentStatusFailed,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

// Cancelable reports whether an intent in this status may still be canceled.
func (p PaymentStatus) Cancelable() bool {
	switch p {
	case PaymentStatusRequiresPaymentMethod,
		PaymentStatusRequiresConfirmation,
		PaymentStatusRequiresAction,
		PaymentStatusProcessing:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status is a final fact that must not be overwritten.
func (p PaymentStatus) Terminal() bool {
	switch p {
	case PaymentStatusSucceeded, PaymentStatusCanceled, PaymentStatusFailed:
		return true
	default:
		return false
	}
}

// CancelablePaymentStatuses returns the statuses eligible for cancellation.
func CancelablePaymentStatuses() []PaymentStatus {
	return []PaymentStatus{
		PaymentStatusRequiresPaymentMethod,
		PaymentStatusRequiresConfirmation,
		PaymentStatusRequiresAction,
		PaymentStatusProcessing,
	}
}

// TerminalPaymentStatuses returns the final statuses.
func TerminalPaymentStatuses() []PaymentStatus {
	return []PaymentStatus{PaymentStatusSucceeded, PaymentStatusCanceled, PaymentStatusFailed}
}
