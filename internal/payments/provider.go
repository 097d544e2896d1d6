package payments

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
)

// ErrIntentNotFound is returned by a Provider when the remote intent does not exist.
var ErrIntentNotFound = errors.New("payment intent not found")

// Cancellation reasons accepted by CancelIntent.
const (
	CancelReasonAbandoned           = "abandoned"
	CancelReasonDuplicate           = "duplicate"
	CancelReasonRequestedByCustomer = "requested_by_customer"
)

// Intent is the provider's view of an in-progress payment.
type Intent struct {
	ID          string
	Status      enums.PaymentStatus
	AmountMinor int64
	Currency    string
}

// CreateIntentInput describes a new remote intent. Amount is in major units.
type CreateIntentInput struct {
	Amount   decimal.Decimal
	Currency string
	Metadata map[string]string
}

// Provider is the remote payment service. It is the source of truth for
// intent status.
type Provider interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
	CancelIntent(ctx context.Context, id, reason string) (*Intent, error)
}
