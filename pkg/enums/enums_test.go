package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTripsKnownValues(t *testing.T) {
	status, err := ParseOrderStatus("requires_payment")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusRequiresPayment, status)

	payment, err := ParsePaymentStatus("requires_capture")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusRequiresCapture, payment)

	reason, err := ParsePaymentCancelReason("stripe_not_found")
	require.NoError(t, err)
	assert.Equal(t, PaymentCancelReasonRemoteNotFound, reason)
}

func TestParseRejectsUnknownValues(t *testing.T) {
	_, err := ParseOrderStatus("shipped")
	assert.Error(t, err)
	_, err = ParsePaymentStatus("Succeeded")
	assert.Error(t, err, "statuses are case sensitive")
	_, err = ParsePaymentCancelReason("")
	assert.Error(t, err)
	assert.False(t, AlertType("flooded").IsValid())
}

func TestOrderStatusAwaitingPayment(t *testing.T) {
	for _, status := range validOrderStatuses {
		want := status == OrderStatusPending || status == OrderStatusRequiresPayment
		assert.Equal(t, want, status.AwaitingPayment(), status.String())
	}
	assert.ElementsMatch(t, []OrderStatus{OrderStatusPending, OrderStatusRequiresPayment}, ExpirableOrderStatuses())
}

func TestPaymentStatusClassification(t *testing.T) {
	cases := map[PaymentStatus]struct{ cancelable, terminal bool }{
		PaymentStatusRequiresPaymentMethod: {cancelable: true},
		PaymentStatusRequiresConfirmation:  {cancelable: true},
		PaymentStatusRequiresAction:        {cancelable: true},
		PaymentStatusProcessing:            {cancelable: true},
		PaymentStatusRequiresCapture:       {},
		PaymentStatusSucceeded:             {terminal: true},
		PaymentStatusCanceled:              {terminal: true},
		PaymentStatusFailed:                {terminal: true},
	}
	require.Len(t, cases, len(validPaymentStatuses))
	for status, want := range cases {
		assert.Equal(t, want.cancelable, status.Cancelable(), "cancelable %s", status)
		assert.Equal(t, want.terminal, status.Terminal(), "terminal %s", status)
	}
	assert.Len(t, CancelablePaymentStatuses(), 4)
	assert.Len(t, TerminalPaymentStatuses(), 3)
}
