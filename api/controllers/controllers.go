package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/api/responses"
	"github.com/angelmondragon/vendorbox-backend/internal/alerts"
	"github.com/angelmondragon/vendorbox-backend/internal/reservations"
	"github.com/angelmondragon/vendorbox-backend/internal/sweeps"
	"github.com/angelmondragon/vendorbox-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vendorbox-backend/pkg/errors"
	"github.com/angelmondragon/vendorbox-backend/pkg/logger"
	"github.com/angelmondragon/vendorbox-backend/pkg/metrics"
)

// Pinger is the readiness surface of a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SweepRunner is any sweep that can be triggered on demand.
type SweepRunner interface {
	Execute(ctx context.Context) sweeps.Result
}

// SweepMetricsReader exposes the sweep counters to operators.
type SweepMetricsReader interface {
	Snapshot() metrics.SweepSnapshot
	Reset()
}

// StockLedger is the ledger surface used by the admin stock endpoints.
type StockLedger interface {
	CleanupExpired(ctx context.Context) (reservations.Cleanup, error)
	AdjustStock(ctx context.Context, tx *gorm.DB, input reservations.AdjustInput) (*models.Stock, error)
	ConfigureSlot(ctx context.Context, input reservations.SlotInput) (*models.Stock, error)
}

// AlertService is the alert surface used by the admin alert endpoints.
type AlertService interface {
	UpdateMachineAlerts(ctx context.Context, tx *gorm.DB, machineID uuid.UUID) (alerts.Outcome, error)
	Refresh(ctx context.Context, machineIDs ...uuid.UUID)
	CleanupDuplicateAlerts(ctx context.Context) (int, error)
	RecalculateAllMachineAlerts(ctx context.Context) (alerts.Recalculation, error)
	Resolve(ctx context.Context, alertID uuid.UUID) error
	Dismiss(ctx context.Context, alertID uuid.UUID) error
	Summary(ctx context.Context) (alerts.Summary, error)
}

// writeServiceError passes typed domain errors through and reports anything
// else as a storage dependency failure.
func writeServiceError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error, op string) {
	if pkgerrors.As(err) != nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}
	responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, op))
}
