package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/vendorbox-backend/internal/alerts"
	"github.com/angelmondragon/vendorbox-backend/internal/reservations"
	"github.com/angelmondragon/vendorbox-backend/internal/sweeps"
	"github.com/angelmondragon/vendorbox-backend/pkg/logger"
	"github.com/angelmondragon/vendorbox-backend/pkg/metrics"
)

const (
	ReservationCleanupJobName = "reservation-cleanup"
	AlertMaintenanceJobName   = "alert-maintenance"
)

// Sweep is a reconciliation pass that reports its outcome instead of failing.
type Sweep interface {
	Name() string
	Execute(ctx context.Context) sweeps.Result
}

// SweepJob adapts a sweep to the scheduler; any collected item error fails the run.
type SweepJob struct {
	sweep Sweep
}

func NewSweepJob(sweep Sweep) (*SweepJob, error) {
	if sweep == nil {
		return nil, errors.New("sweep required")
	}
	return &SweepJob{sweep: sweep}, nil
}

func (j *SweepJob) Name() string { return j.sweep.Name() }

func (j *SweepJob) Run(ctx context.Context) error {
	return j.sweep.Execute(ctx).Err()
}

// ReservationCleaner expires lapsed reservations.
type ReservationCleaner interface {
	CleanupExpired(ctx context.Context) (reservations.Cleanup, error)
}

// AlertRefresher recomputes alerts for machines whose stock changed.
type AlertRefresher interface {
	Refresh(ctx context.Context, machineIDs ...uuid.UUID)
}

// ReservationCleanupJobParams wires the reservation cleanup job.
type ReservationCleanupJobParams struct {
	Ledger  ReservationCleaner
	Alerts  AlertRefresher
	Metrics *metrics.SweepMetrics
	Logger  *logger.Logger
}

// ReservationCleanupJob returns units held by lapsed reservations to stock.
type ReservationCleanupJob struct {
	ledger  ReservationCleaner
	alerts  AlertRefresher
	metrics *metrics.SweepMetrics
	logg    *logger.Logger
}

func NewReservationCleanupJob(params ReservationCleanupJobParams) (*ReservationCleanupJob, error) {
	if params.Ledger == nil {
		return nil, errors.New("reservation ledger required")
	}
	if params.Alerts == nil {
		return nil, errors.New("alert refresher required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &ReservationCleanupJob{
		ledger:  params.Ledger,
		alerts:  params.Alerts,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

func (j *ReservationCleanupJob) Name() string { return ReservationCleanupJobName }

func (j *ReservationCleanupJob) Run(ctx context.Context) error {
	started := time.Now()
	res, err := j.ledger.CleanupExpired(ctx)
	j.alerts.Refresh(ctx, res.Machines...)

	errs := 0
	if err != nil {
		errs = 1
	}
	j.metrics.AddReservationsExpired(res.Expired)
	j.metrics.AddStockUnitsReleased(res.Units)
	j.metrics.SetLastRun(ReservationCleanupJobName, time.Now().UTC(), time.Since(started), errs)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"reservations_expired": res.Expired,
		"stock_units_released": res.Units,
		"machines":             len(res.Machines),
	})
	j.logg.Info(logCtx, "reservation cleanup finished")
	return err
}

// AlertMaintainer is the alert surface the maintenance job drives.
type AlertMaintainer interface {
	CleanupDuplicateAlerts(ctx context.Context) (int, error)
	RecalculateAllMachineAlerts(ctx context.Context) (alerts.Recalculation, error)
}

// AlertMaintenanceJob dedupes active alerts and then recalculates every machine.
type AlertMaintenanceJob struct {
	alerts AlertMaintainer
	logg   *logger.Logger
}

func NewAlertMaintenanceJob(maintainer AlertMaintainer, logg *logger.Logger) (*AlertMaintenanceJob, error) {
	if maintainer == nil {
		return nil, errors.New("alert service required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &AlertMaintenanceJob{alerts: maintainer, logg: logg}, nil
}

func (j *AlertMaintenanceJob) Name() string { return AlertMaintenanceJobName }

func (j *AlertMaintenanceJob) Run(ctx context.Context) error {
	var errs error
	resolved, err := j.alerts.CleanupDuplicateAlerts(ctx)
	errs = multierr.Append(errs, err)

	recalc, err := j.alerts.RecalculateAllMachineAlerts(ctx)
	errs = multierr.Append(errs, err)
	for _, msg := range recalc.Errors {
		errs = multierr.Append(errs, errors.New(msg))
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"duplicates_resolved": resolved,
		"machines":            recalc.Machines,
		"actions":             recalc.Actions,
	})
	j.logg.Info(logCtx, "alert maintenance finished")
	if errs != nil {
		return fmt.Errorf("alert maintenance: %w", errs)
	}
	return nil
}
