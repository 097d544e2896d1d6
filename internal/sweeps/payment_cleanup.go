package sweeps

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/internal/batch"
	"github.com/angelmondragon/vendorbox-backend/internal/payments"
	"github.com/angelmondragon/vendorbox-backend/pkg/audit"
	dbpkg "github.com/angelmondragon/vendorbox-backend/pkg/db"
	"github.com/angelmondragon/vendorbox-backend/pkg/db/models"
	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
	"github.com/angelmondragon/vendorbox-backend/pkg/logger"
	"github.com/angelmondragon/vendorbox-backend/pkg/metrics"
)

const (
	PaymentCleanupJobName = "payment-cleanup"

	defaultPaymentBatchSize  = 50
	defaultPaymentStaleAfter = 7 * 24 * time.Hour
)

// PaymentCleanupParams wires the stale payment cleanup sweep.
type PaymentCleanupParams struct {
	UnitOfWork     dbpkg.UnitOfWork
	Payments       payments.Repository
	Provider       payments.Provider
	Audit          audit.Recorder
	Metrics        *metrics.SweepMetrics
	Logger         *logger.Logger
	BatchSize      int
	CandidateLimit int
	StaleAfter     time.Duration
	Now            func() time.Time
}

// PaymentCleanupSweep reconciles orphaned, archived and stale local payments
// against the provider.
type PaymentCleanupSweep struct {
	uow        dbpkg.UnitOfWork
	payments   payments.Repository
	reconciler *reconciler
	metrics    *metrics.SweepMetrics
	logg       *logger.Logger
	batchSize  int
	limit      int
	staleAfter time.Duration
	now        func() time.Time
}

func NewPaymentCleanupSweep(params PaymentCleanupParams) (*PaymentCleanupSweep, error) {
	if params.UnitOfWork == nil {
		return nil, fmt.Errorf("unit of work required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	size := params.BatchSize
	if size <= 0 {
		size = defaultPaymentBatchSize
	}
	limit := params.CandidateLimit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultPaymentStaleAfter
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &PaymentCleanupSweep{
		uow:      params.UnitOfWork,
		payments: params.Payments,
		reconciler: &reconciler{
			provider: params.Provider,
			payments: params.Payments,
			audit:    params.Audit,
			logg:     params.Logger,
		},
		metrics:    params.Metrics,
		logg:       params.Logger,
		batchSize:  size,
		limit:      limit,
		staleAfter: staleAfter,
		now:        now,
	}, nil
}

func (s *PaymentCleanupSweep) Name() string { return PaymentCleanupJobName }

// Execute runs one full pass. Like the order sweep it always returns a result
// and runs to the end of its candidate set.
func (s *PaymentCleanupSweep) Execute(ctx context.Context) Result {
	ctx = context.WithoutCancel(ctx)
	started := time.Now()
	res := Result{Errors: []string{}}

	candidates, err := s.payments.ListCleanupCandidates(ctx, s.now().Add(-s.staleAfter), s.limit)
	if err != nil {
		s.logg.Error(ctx, "payment cleanup: load candidates failed", err)
		res.Errors = append(res.Errors, fmt.Sprintf("load candidates: %v", err))
		return s.finish(ctx, res, started)
	}

	err = batch.Process(ctx, candidates, s.batchSize, func(ctx context.Context, chunk []models.Payment) error {
		for _, payment := range chunk {
			updated, canceled, err := s.cleanupPayment(ctx, payment)
			if err != nil {
				s.logg.Error(s.logg.WithPaymentID(ctx, payment.ID.String()), "payment cleanup failed", err)
				res.Errors = append(res.Errors, fmt.Sprintf("payment %s: %v", payment.ID, err))
				continue
			}
			if updated {
				res.PaymentsUpdated++
			}
			if canceled {
				res.PaymentIntentsCanceled++
			}
		}
		return nil
	})
	if err != nil {
		s.logg.Error(ctx, "batch processing aborted", err)
		res.Errors = append(res.Errors, err.Error())
	}

	return s.finish(ctx, res, started)
}

// cleanupPayment consults the provider outside any transaction, then writes
// the local outcome and its audit record atomically.
func (s *PaymentCleanupSweep) cleanupPayment(ctx context.Context, payment models.Payment) (updated, intentCanceled bool, err error) {
	d := s.reconciler.decide(ctx, payment, enums.PaymentCancelReasonAbandoned)
	if d == nil {
		return false, false, nil
	}
	err = s.uow.WithTx(ctx, func(tx *gorm.DB) error {
		changed, err := s.reconciler.apply(ctx, tx, payment, d)
		updated = changed
		return err
	})
	if err != nil {
		return false, false, err
	}
	return updated, updated && d.intentCanceled, nil
}

func (s *PaymentCleanupSweep) finish(ctx context.Context, res Result, started time.Time) Result {
	res.Duration = time.Since(started)
	s.metrics.AddPaymentIntentsCanceled(res.PaymentIntentsCanceled)
	s.metrics.AddPaymentsUpdated(res.PaymentsUpdated)
	s.metrics.SetLastRun(PaymentCleanupJobName, time.Now().UTC(), res.Duration, len(res.Errors))

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"job":                      PaymentCleanupJobName,
		"payment_intents_canceled": res.PaymentIntentsCanceled,
		"payments_updated":         res.PaymentsUpdated,
		"errors":                   len(res.Errors),
		"duration_ms":              res.Duration.Milliseconds(),
	})
	s.logg.Info(logCtx, "payment cleanup sweep finished")
	return res
}
