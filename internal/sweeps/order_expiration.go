package sweeps

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/internal/batch"
	"github.com/angelmondragon/vendorbox-backend/internal/orders"
	"github.com/angelmondragon/vendorbox-backend/internal/payments"
	"github.com/angelmondragon/vendorbox-backend/pkg/audit"
	dbpkg "github.com/angelmondragon/vendorbox-backend/pkg/db"
	"github.com/angelmondragon/vendorbox-backend/pkg/db/models"
	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
	"github.com/angelmondragon/vendorbox-backend/pkg/logger"
	"github.com/angelmondragon/vendorbox-backend/pkg/metrics"
)

const (
	OrderExpirationJobName = "order-expiration"

	defaultOrderBatchSize = 100
	defaultCandidateLimit = 1000
)

// OrderExpirationParams wires the order expiration sweep.
type OrderExpirationParams struct {
	UnitOfWork     dbpkg.UnitOfWork
	Orders         orders.Repository
	Payments       payments.Repository
	Ledger         StockReleaser
	Alerts         AlertRefresher
	Provider       payments.Provider
	Audit          audit.Recorder
	Metrics        *metrics.SweepMetrics
	Logger         *logger.Logger
	BatchSize      int
	CandidateLimit int
	Now            func() time.Time
}

// OrderExpirationSweep expires pre-payment orders past their deadline,
// returns their stock and closes their open payment intents.
type OrderExpirationSweep struct {
	uow        dbpkg.UnitOfWork
	orders     orders.Repository
	ledger     StockReleaser
	alerts     AlertRefresher
	reconciler *reconciler
	audit      audit.Recorder
	metrics    *metrics.SweepMetrics
	logg       *logger.Logger
	batchSize  int
	limit      int
	now        func() time.Time
}

func NewOrderExpirationSweep(params OrderExpirationParams) (*OrderExpirationSweep, error) {
	if params.UnitOfWork == nil {
		return nil, fmt.Errorf("unit of work required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("reservation ledger required")
	}
	if params.Alerts == nil {
		return nil, fmt.Errorf("alert refresher required")
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
		size = defaultOrderBatchSize
	}
	limit := params.CandidateLimit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &OrderExpirationSweep{
		uow:    params.UnitOfWork,
		orders: params.Orders,
		ledger: params.Ledger,
		alerts: params.Alerts,
		reconciler: &reconciler{
			provider: params.Provider,
			payments: params.Payments,
			audit:    params.Audit,
			logg:     params.Logger,
		},
		audit:     params.Audit,
		metrics:   params.Metrics,
		logg:      params.Logger,
		batchSize: size,
		limit:     limit,
		now:       now,
	}, nil
}

func (s *OrderExpirationSweep) Name() string { return OrderExpirationJobName }

type expiration struct {
	expired         bool
	unitsReleased   int
	intentsCanceled int
	paymentsUpdated int
	machines        []uuid.UUID
}

// Execute runs one full pass. It never returns an error: failures are
// collected in the result. Once started, a pass runs to the end of its
// candidate set even if ctx is canceled.
func (s *OrderExpirationSweep) Execute(ctx context.Context) Result {
	ctx = context.WithoutCancel(ctx)
	started := time.Now()
	res := Result{Errors: []string{}}

	candidates, err := s.orders.ListExpirationCandidates(ctx, s.now(), s.limit)
	if err != nil {
		s.logg.Error(ctx, "order expiration: load candidates failed", err)
		res.Errors = append(res.Errors, fmt.Sprintf("load candidates: %v", err))
		return s.finish(ctx, res, started)
	}

	err = batch.Process(ctx, candidates, s.batchSize, func(ctx context.Context, chunk []models.Order) error {
		for _, order := range chunk {
			out, err := s.expireOrder(ctx, order)
			if err != nil {
				s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "order expiration failed", err)
				res.Errors = append(res.Errors, fmt.Sprintf("order %s: %v", order.ID, err))
				continue
			}
			if !out.expired {
				continue
			}
			res.OrdersExpired++
			res.StockUnitsReleased += out.unitsReleased
			res.PaymentIntentsCanceled += out.intentsCanceled
			res.PaymentsUpdated += out.paymentsUpdated
			s.alerts.Refresh(ctx, out.machines...)
		}
		return nil
	})
	if err != nil {
		s.logg.Error(ctx, "batch processing aborted", err)
		res.Errors = append(res.Errors, err.Error())
	}

	return s.finish(ctx, res, started)
}

func (s *OrderExpirationSweep) expireOrder(ctx context.Context, order models.Order) (expiration, error) {
	var out expiration
	err := s.uow.WithTx(ctx, func(tx *gorm.DB) error {
		out = expiration{}
		now := s.now()
		changed, err := s.orders.WithTx(tx).MarkExpired(ctx, order.ID, now)
		if err != nil {
			return fmt.Errorf("mark expired: %w", err)
		}
		if !changed {
			return nil
		}
		out.expired = true

		released, err := s.ledger.ReleaseForOrder(ctx, tx, order.ID)
		if err != nil {
			return fmt.Errorf("release stock: %w", err)
		}
		out.unitsReleased = released.Units
		out.machines = released.Machines
		if order.MachineID != nil {
			out.machines = appendUnique(out.machines, *order.MachineID)
		}

		if p := order.Payment; p != nil && p.RemoteIntentID() != "" && p.Status.Cancelable() {
			if d := s.reconciler.decide(ctx, *p, enums.PaymentCancelReasonOrderExpired); d != nil {
				updated, err := s.reconciler.apply(ctx, tx, *p, d)
				if err != nil {
					return err
				}
				if updated {
					out.paymentsUpdated++
					if d.intentCanceled {
						out.intentsCanceled++
					}
				}
			}
		}

		s.audit.Record(ctx, tx, audit.Event{
			Type:          enums.AuditOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			OrderID:       &order.ID,
			Data: map[string]any{
				"order_id":         order.ID,
				"expires_at":       order.ExpiresAt,
				"expired_at":       now,
				"units_released":   out.unitsReleased,
				"intents_canceled": out.intentsCanceled,
			},
		})
		return nil
	})
	if err != nil {
		return expiration{}, err
	}
	return out, nil
}

func (s *OrderExpirationSweep) finish(ctx context.Context, res Result, started time.Time) Result {
	res.Duration = time.Since(started)
	s.metrics.AddOrdersExpired(res.OrdersExpired)
	s.metrics.AddPaymentIntentsCanceled(res.PaymentIntentsCanceled)
	s.metrics.AddPaymentsUpdated(res.PaymentsUpdated)
	s.metrics.AddStockUnitsReleased(res.StockUnitsReleased)
	s.metrics.SetLastRun(OrderExpirationJobName, time.Now().UTC(), res.Duration, len(res.Errors))

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"job":                      OrderExpirationJobName,
		"orders_expired":           res.OrdersExpired,
		"payment_intents_canceled": res.PaymentIntentsCanceled,
		"payments_updated":         res.PaymentsUpdated,
		"stock_units_released":     res.StockUnitsReleased,
		"errors":                   len(res.Errors),
		"duration_ms":              res.Duration.Milliseconds(),
	})
	s.logg.Info(logCtx, "order expiration sweep finished")
	return res
}

func appendUnique(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
