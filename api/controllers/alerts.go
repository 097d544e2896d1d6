package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorbox-backend/api/responses"
	"github.com/angelmondragon/vendorbox-backend/api/validators"
	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorbox-backend/pkg/errors"
	"github.com/angelmondragon/vendorbox-backend/pkg/logger"
)

type alertOutcomeResponse struct {
	MachineID       uuid.UUID       `json:"machine_id"`
	Action          string          `json:"action"`
	Priority        string          `json:"priority"`
	AlertID         *uuid.UUID      `json:"alert_id,omitempty"`
	AlertType       enums.AlertType `json:"alert_type,omitempty"`
	Message         string          `json:"message,omitempty"`
	ConfiguredSlots int             `json:"configured_slots"`
	EmptySlots      int             `json:"empty_slots"`
	LowStockSlots   int             `json:"low_stock_slots"`
}

func unavailableAlerts(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alert service unavailable"))
}

// AdminUpdateMachineAlerts recalculates one machine's alert.
func AdminUpdateMachineAlerts(svc AlertService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailableAlerts(w, r, logg)
			return
		}
		machineID, err := validators.ParseUUIDParam(r, "machineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.UpdateMachineAlerts(r.Context(), nil, machineID)
		if err != nil {
			writeServiceError(r.Context(), logg, w, err, "update machine alerts")
			return
		}
		resp := alertOutcomeResponse{
			MachineID:       out.MachineID,
			Action:          string(out.Action),
			Priority:        out.Assessment.Priority.String(),
			ConfiguredSlots: out.Assessment.ConfiguredSlots,
			EmptySlots:      out.Assessment.EmptySlots,
			LowStockSlots:   out.Assessment.LowStockSlots,
		}
		if out.Alert != nil && out.Alert.IsActive {
			resp.AlertID = &out.Alert.ID
			resp.AlertType = out.Alert.Type
			resp.Message = out.Alert.Message
		}
		responses.WriteSuccess(w, resp)
	}
}

// AdminRecalculateAlerts re-runs the alert writer for every machine.
func AdminRecalculateAlerts(svc AlertService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailableAlerts(w, r, logg)
			return
		}
		out, err := svc.RecalculateAllMachineAlerts(r.Context())
		if err != nil {
			writeServiceError(r.Context(), logg, w, err, "recalculate alerts")
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// AdminCleanupDuplicateAlerts resolves extra active alerts per machine.
func AdminCleanupDuplicateAlerts(svc AlertService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailableAlerts(w, r, logg)
			return
		}
		resolved, err := svc.CleanupDuplicateAlerts(r.Context())
		if err != nil {
			writeServiceError(r.Context(), logg, w, err, "cleanup duplicate alerts")
			return
		}
		responses.WriteSuccess(w, map[string]int{"resolved": resolved})
	}
}

// AdminResolveAlert closes an active alert as resolved.
func AdminResolveAlert(svc AlertService, logg *logger.Logger) http.HandlerFunc {
	return closeAlert(svc, logg, enums.AlertStatusResolved)
}

// AdminDismissAlert closes an active alert as ignored.
func AdminDismissAlert(svc AlertService, logg *logger.Logger) http.HandlerFunc {
	return closeAlert(svc, logg, enums.AlertStatusIgnored)
}

func closeAlert(svc AlertService, logg *logger.Logger, status enums.AlertStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailableAlerts(w, r, logg)
			return
		}
		alertID, err := validators.ParseUUIDParam(r, "alertId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if status == enums.AlertStatusIgnored {
			err = svc.Dismiss(r.Context(), alertID)
		} else {
			err = svc.Resolve(r.Context(), alertID)
		}
		if err != nil {
			writeServiceError(r.Context(), logg, w, err, "close alert")
			return
		}
		responses.WriteSuccess(w, map[string]any{"alert_id": alertID, "status": status})
	}
}

// AdminAlertSummary reports active alert counts across machines.
func AdminAlertSummary(svc AlertService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailableAlerts(w, r, logg)
			return
		}
		summary, err := svc.Summary(r.Context())
		if err != nil {
			writeServiceError(r.Context(), logg, w, err, "alert summary")
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
