package sweeps

import (
	"errors"
	"time"

	"go.uber.org/multierr"
)

// Result is returned by every sweep run, including runs that failed outright.
type Result struct {
	OrdersExpired          int           `json:"orders_expired"`
	PaymentIntentsCanceled int           `json:"payment_intents_canceled"`
	PaymentsUpdated        int           `json:"payments_updated"`
	StockUnitsReleased     int           `json:"stock_units_released"`
	Duration               time.Duration `json:"duration"`
	Errors                 []string      `json:"errors"`
}

// Err folds the recorded item errors into one error, or nil when there were none.
func (r Result) Err() error {
	var err error
	for _, msg := range r.Errors {
		err = multierr.Append(err, errors.New(msg))
	}
	return err
}
