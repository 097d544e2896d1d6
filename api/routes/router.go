package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/vendorbox-backend/api/controllers"
	"github.com/angelmondragon/vendorbox-backend/api/middleware"
	"github.com/angelmondragon/vendorbox-backend/pkg/config"
	"github.com/angelmondragon/vendorbox-backend/pkg/logger"
)

// Deps carries everything the admin surface is wired to.
type Deps struct {
	DB                 controllers.Pinger
	Redis              controllers.Pinger
	Schema             controllers.Pinger
	OrderExpiration    controllers.SweepRunner
	PaymentCleanup     controllers.SweepRunner
	SweepMetrics       controllers.SweepMetricsReader
	Ledger             controllers.StockLedger
	Alerts             controllers.AlertService
	PrometheusGatherer prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":     deps.DB,
			"redis":  deps.Redis,
			"schema": deps.Schema,
		}))
	})

	if deps.PrometheusGatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.PrometheusGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/admin", func(r chi.Router) {
		r.Route("/sweeps", func(r chi.Router) {
			r.Post("/order-expiration", controllers.AdminRunSweep(deps.OrderExpiration, logg))
			r.Post("/payment-cleanup", controllers.AdminRunSweep(deps.PaymentCleanup, logg))
			r.Get("/metrics", controllers.AdminSweepMetrics(deps.SweepMetrics, logg))
			r.Post("/metrics/reset", controllers.AdminResetSweepMetrics(deps.SweepMetrics, logg))
		})

		r.Post("/reservations/cleanup", controllers.AdminCleanupReservations(deps.Ledger, deps.Alerts, logg))
		r.Post("/stocks/{stockId}/adjust", controllers.AdminAdjustStock(deps.Ledger, deps.Alerts, logg))

		r.Route("/machines/{machineId}", func(r chi.Router) {
			r.Post("/alerts", controllers.AdminUpdateMachineAlerts(deps.Alerts, logg))
			r.Post("/slots", controllers.AdminConfigureSlot(deps.Ledger, deps.Alerts, logg))
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/summary", controllers.AdminAlertSummary(deps.Alerts, logg))
			r.Post("/recalculate", controllers.AdminRecalculateAlerts(deps.Alerts, logg))
			r.Post("/cleanup-duplicates", controllers.AdminCleanupDuplicateAlerts(deps.Alerts, logg))
			r.Post("/{alertId}/resolve", controllers.AdminResolveAlert(deps.Alerts, logg))
			r.Post("/{alertId}/dismiss", controllers.AdminDismissAlert(deps.Alerts, logg))
		})
	})

	return r
}
