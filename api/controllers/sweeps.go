package controllers

import (
	"net/http"

	"github.com/angelmondragon/vendorbox-backend/api/responses"
	pkgerrors "github.com/angelmondragon/vendorbox-backend/pkg/errors"
	"github.com/angelmondragon/vendorbox-backend/pkg/logger"
)

// AdminRunSweep executes one full pass of the sweep on the request goroutine.
// Item failures are part of the result body; the request itself succeeds.
func AdminRunSweep(sweep SweepRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sweep == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sweep unavailable"))
			return
		}
		res := sweep.Execute(r.Context())
		if len(res.Errors) > 0 && logg != nil {
			logg.Warn(logg.WithField(r.Context(), "errors", len(res.Errors)), "manual sweep finished with errors")
		}
		responses.WriteSuccess(w, res)
	}
}

// AdminSweepMetrics returns a snapshot of the sweep counters.
func AdminSweepMetrics(m SweepMetricsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sweep metrics unavailable"))
			return
		}
		responses.WriteSuccess(w, m.Snapshot())
	}
}

// AdminResetSweepMetrics zeroes the in-memory sweep counters.
func AdminResetSweepMetrics(m SweepMetricsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sweep metrics unavailable"))
			return
		}
		m.Reset()
		if logg != nil {
			logg.Info(r.Context(), "sweep metrics reset")
		}
		responses.WriteSuccess(w, m.Snapshot())
	}
}
