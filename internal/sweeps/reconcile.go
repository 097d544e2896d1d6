package sweeps

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/internal/payments"
	"github.com/angelmondragon/vendorbox-backend/internal/reservations"
	"github.com/angelmondragon/vendorbox-backend/pkg/audit"
	"github.com/angelmondragon/vendorbox-backend/pkg/db/models"
	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
	"github.com/angelmondragon/vendorbox-backend/pkg/logger"
)

// StockReleaser returns an order's reserved units to stock.
type StockReleaser interface {
	ReleaseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (reservations.Release, error)
}

// AlertRefresher recomputes machine alerts after stock changes. It must not fail.
type AlertRefresher interface {
	Refresh(ctx context.Context, machineIDs ...uuid.UUID)
}

// paymentDecision is the local write a remote observation calls for.
type paymentDecision struct {
	to             enums.PaymentStatus
	reason         enums.PaymentCancelReason
	intentCanceled bool
	remoteErr      error
}

func (d *paymentDecision) synced() bool {
	return d.reason == ""
}

// reconciler decides and applies local payment transitions against the
// provider, shared by both sweeps.
type reconciler struct {
	provider payments.Provider
	payments payments.Repository
	audit    audit.Recorder
	logg     *logger.Logger
}

// decide consults the provider for a payment that has a remote intent.
// A nil decision means the payment is left untouched.
func (r *reconciler) decide(ctx context.Context, payment models.Payment, canceledReason enums.PaymentCancelReason) *paymentDecision {
	intentID := payment.RemoteIntentID()
	if intentID == "" {
		return &paymentDecision{to: enums.PaymentStatusCanceled, reason: enums.PaymentCancelReasonNoRemoteIntent}
	}
	intent, err := r.provider.RetrieveIntent(ctx, intentID)
	switch {
	case errors.Is(err, payments.ErrIntentNotFound):
		return &paymentDecision{to: enums.PaymentStatusCanceled, reason: enums.PaymentCancelReasonRemoteNotFound, remoteErr: err}
	case err != nil:
		return &paymentDecision{to: enums.PaymentStatusCanceled, reason: enums.PaymentCancelReasonRemoteError, remoteErr: err}
	}

	switch {
	case intent.Status.Cancelable():
		if _, err := r.provider.CancelIntent(ctx, intentID, payments.CancelReasonAbandoned); err != nil {
			return &paymentDecision{to: enums.PaymentStatusCanceled, reason: enums.PaymentCancelReasonCancelFailed, remoteErr: err}
		}
		return &paymentDecision{to: enums.PaymentStatusCanceled, reason: canceledReason, intentCanceled: true}
	case intent.Status.Terminal():
		if intent.Status == payment.Status {
			return nil
		}
		return &paymentDecision{to: intent.Status}
	default:
		return nil
	}
}

// apply writes the decision guarded on the payment's observed status and
// records the audit event. It reports whether the row changed.
func (r *reconciler) apply(ctx context.Context, tx *gorm.DB, payment models.Payment, d *paymentDecision) (bool, error) {
	var lastError *string
	if !d.synced() {
		reason := string(d.reason)
		lastError = &reason
	}
	changed, err := r.payments.WithTx(tx).UpdateStatus(ctx, payment.ID, payment.Status, d.to, lastError)
	if err != nil {
		return false, fmt.Errorf("update payment %s: %w", payment.ID, err)
	}
	if !changed {
		return false, nil
	}

	if d.remoteErr != nil && r.logg != nil {
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"payment_id": payment.ID.String(),
			"reason":     d.reason,
		})
		r.logg.Warn(logCtx, fmt.Sprintf("payment closed locally after provider fault: %v", d.remoteErr))
	}

	event := audit.Event{
		Type:          enums.AuditPaymentCanceled,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		OrderID:       payment.OrderID,
		Data: map[string]any{
			"payment_id":       payment.ID,
			"order_id":         payment.OrderID,
			"remote_intent_id": payment.RemoteIntentID(),
			"from":             payment.Status,
			"to":               d.to,
			"canceled_reason":  d.reason,
			"intent_canceled":  d.intentCanceled,
		},
	}
	if d.synced() {
		event.Type = enums.AuditPaymentSynced
	}
	r.audit.Record(ctx, tx, event)
	return true, nil
}
