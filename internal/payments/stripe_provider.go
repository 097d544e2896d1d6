package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
	pkgstripe "github.com/angelmondragon/vendorbox-backend/pkg/stripe"
)

// StripeIntentAPI is the subset of Stripe's payment intent service the
// provider calls.
type StripeIntentAPI interface {
	New(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)
	Get(ctx context.Context, id string, params *stripe.PaymentIntentRetrieveParams) (*stripe.PaymentIntent, error)
	Cancel(ctx context.Context, id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
}

type stripeIntentWrapper struct {
	api *stripe.Client
}

// NewStripeIntentAPI binds the payment intent service of the configured
// client, so every call carries its key, retries and timeout.
func NewStripeIntentAPI(client *pkgstripe.Client) StripeIntentAPI {
	if client == nil || client.API() == nil {
		return nil
	}
	return &stripeIntentWrapper{api: client.API()}
}

func (w *stripeIntentWrapper) New(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error) {
	return w.api.V1PaymentIntents.Create(ctx, params)
}

func (w *stripeIntentWrapper) Get(ctx context.Context, id string, params *stripe.PaymentIntentRetrieveParams) (*stripe.PaymentIntent, error) {
	return w.api.V1PaymentIntents.Retrieve(ctx, id, params)
}

func (w *stripeIntentWrapper) Cancel(ctx context.Context, id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
	return w.api.V1PaymentIntents.Cancel(ctx, id, params)
}

// StripeProvider adapts Stripe payment intents to Provider.
type StripeProvider struct {
	api StripeIntentAPI
}

func NewStripeProvider(api StripeIntentAPI) (*StripeProvider, error) {
	if api == nil {
		return nil, fmt.Errorf("stripe intent api required")
	}
	return &StripeProvider{api: api}, nil
}

func (p *StripeProvider) CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error) {
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}
	currency := strings.ToLower(strings.TrimSpace(input.Currency))
	if currency == "" {
		return nil, fmt.Errorf("currency is required")
	}
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(MinorUnits(input.Amount, currency)),
		Currency: stripe.String(currency),
	}
	for k, v := range input.Metadata {
		params.AddMetadata(k, v)
	}
	pi, err := p.api.New(ctx, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return toIntent(pi), nil
}

func (p *StripeProvider) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	pi, err := p.api.Get(ctx, id, nil)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return toIntent(pi), nil
}

func (p *StripeProvider) CancelIntent(ctx context.Context, id, reason string) (*Intent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	if reason != "" {
		params.CancellationReason = stripe.String(reason)
	}
	pi, err := p.api.Cancel(ctx, id, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return toIntent(pi), nil
}

var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// MinorUnits converts a major-unit amount to the integer Stripe expects.
func MinorUnits(amount decimal.Decimal, currency string) int64 {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return amount.Round(0).IntPart()
	}
	return amount.Shift(2).Round(0).IntPart()
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	if pi == nil {
		return nil
	}
	return &Intent{
		ID:          pi.ID,
		Status:      enums.PaymentStatus(pi.Status),
		AmountMinor: pi.Amount,
		Currency:    string(pi.Currency),
	}
}

func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrIntentNotFound, stripeErr.Msg)
		}
	}
	return err
}
