// Package engine assembles the reconciliation components shared by the api and
// the cron worker.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/internal/alerts"
	"github.com/angelmondragon/vendorbox-backend/internal/cron"
	"github.com/angelmondragon/vendorbox-backend/internal/orders"
	"github.com/angelmondragon/vendorbox-backend/internal/payments"
	"github.com/angelmondragon/vendorbox-backend/internal/reservations"
	"github.com/angelmondragon/vendorbox-backend/internal/sweeps"
	"github.com/angelmondragon/vendorbox-backend/pkg/audit"
	"github.com/angelmondragon/vendorbox-backend/pkg/config"
	dbpkg "github.com/angelmondragon/vendorbox-backend/pkg/db"
	"github.com/angelmondragon/vendorbox-backend/pkg/logger"
	"github.com/angelmondragon/vendorbox-backend/pkg/metrics"
)

// Params wires an Engine.
type Params struct {
	Config     *config.Config
	DB         *gorm.DB
	Provider   payments.Provider
	Registerer prometheus.Registerer
	Logger     *logger.Logger
	Now        func() time.Time
}

// Engine holds one instance of every reconciliation component.
type Engine struct {
	Ledger          *reservations.Ledger
	Alerts          *alerts.Service
	OrderExpiration *sweeps.OrderExpirationSweep
	PaymentCleanup  *sweeps.PaymentCleanupSweep
	SweepMetrics    *metrics.SweepMetrics

	sweepsCfg config.SweepsConfig
	logg      *logger.Logger
}

func New(params Params) (*Engine, error) {
	if params.Config == nil {
		return nil, errors.New("config required")
	}
	if params.DB == nil {
		return nil, errors.New("database required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	cfg := params.Config

	uow := dbpkg.NewUnitOfWork(params.DB)
	sink := audit.NewSink(audit.NewRepository(params.DB), params.Logger)
	sweepMetrics := metrics.NewSweepMetrics(params.Registerer)

	ledger, err := reservations.NewLedger(reservations.LedgerParams{
		UnitOfWork:   uow,
		Repository:   reservations.NewRepository(params.DB),
		Audit:        sink,
		Logger:       params.Logger,
		SlotCapacity: cfg.Machines.SlotCapacity,
		CleanupLimit: cfg.Sweeps.CandidateLimit,
		Now:          params.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("reservation ledger: %w", err)
	}

	alertService, err := alerts.NewService(alerts.ServiceParams{
		UnitOfWork: uow,
		Repository: alerts.NewRepository(params.DB),
		Calculator: alerts.NewCalculator(cfg.Machines.SlotCapacity, cfg.Machines.LowStockRatio),
		Logger:     params.Logger,
		Now:        params.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("alert service: %w", err)
	}

	paymentRepo := payments.NewRepository(params.DB)

	orderExpiration, err := sweeps.NewOrderExpirationSweep(sweeps.OrderExpirationParams{
		UnitOfWork:     uow,
		Orders:         orders.NewRepository(params.DB),
		Payments:       paymentRepo,
		Ledger:         ledger,
		Alerts:         alertService,
		Provider:       params.Provider,
		Audit:          sink,
		Metrics:        sweepMetrics,
		Logger:         params.Logger,
		BatchSize:      cfg.Sweeps.OrderBatchSize,
		CandidateLimit: cfg.Sweeps.CandidateLimit,
		Now:            params.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("order expiration sweep: %w", err)
	}

	paymentCleanup, err := sweeps.NewPaymentCleanupSweep(sweeps.PaymentCleanupParams{
		UnitOfWork:     uow,
		Payments:       paymentRepo,
		Provider:       params.Provider,
		Audit:          sink,
		Metrics:        sweepMetrics,
		Logger:         params.Logger,
		BatchSize:      cfg.Sweeps.PaymentBatchSize,
		CandidateLimit: cfg.Sweeps.CandidateLimit,
		StaleAfter:     cfg.Sweeps.PaymentStaleAfter,
		Now:            params.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("payment cleanup sweep: %w", err)
	}

	return &Engine{
		Ledger:          ledger,
		Alerts:          alertService,
		OrderExpiration: orderExpiration,
		PaymentCleanup:  paymentCleanup,
		SweepMetrics:    sweepMetrics,
		sweepsCfg:       cfg.Sweeps,
		logg:            params.Logger,
	}, nil
}

// Registry schedules every reconciliation job at its configured cadence.
func (e *Engine) Registry() (*cron.Registry, error) {
	orderJob, err := cron.NewSweepJob(e.OrderExpiration)
	if err != nil {
		return nil, err
	}
	paymentJob, err := cron.NewSweepJob(e.PaymentCleanup)
	if err != nil {
		return nil, err
	}
	reservationJob, err := cron.NewReservationCleanupJob(cron.ReservationCleanupJobParams{
		Ledger:  e.Ledger,
		Alerts:  e.Alerts,
		Metrics: e.SweepMetrics,
		Logger:  e.logg,
	})
	if err != nil {
		return nil, err
	}
	alertJob, err := cron.NewAlertMaintenanceJob(e.Alerts, e.logg)
	if err != nil {
		return nil, err
	}

	registry := cron.NewRegistry()
	registry.Register(orderJob, e.sweepsCfg.OrderExpirationInterval)
	registry.Register(paymentJob, e.sweepsCfg.PaymentCleanupInterval)
	registry.Register(reservationJob, e.sweepsCfg.ReservationCleanupInterval)
	registry.Register(alertJob, e.sweepsCfg.AlertMaintenanceInterval)
	return registry, nil
}
