package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorbox-backend/api/responses"
	"github.com/angelmondragon/vendorbox-backend/api/validators"
	"github.com/angelmondragon/vendorbox-backend/internal/reservations"
	pkgerrors "github.com/angelmondragon/vendorbox-backend/pkg/errors"
	"github.com/angelmondragon/vendorbox-backend/pkg/logger"
)

type adjustStockRequest struct {
	Delta  int    `json:"delta" validate:"ne=0"`
	Reason string `json:"reason" validate:"required,max=200"`
}

type configureSlotRequest struct {
	ProductID    uuid.UUID `json:"product_id" validate:"required"`
	SlotNumber   int       `json:"slot_number" validate:"gte=1"`
	MaxCapacity  int       `json:"max_capacity" validate:"gt=0"`
	LowThreshold int       `json:"low_threshold" validate:"gte=0"`
	Quantity     int       `json:"quantity" validate:"gte=0"`
}

type stockResponse struct {
	StockID     uuid.UUID `json:"stock_id"`
	MachineID   uuid.UUID `json:"machine_id"`
	ProductID   uuid.UUID `json:"product_id"`
	SlotNumber  int       `json:"slot_number"`
	Quantity    int       `json:"quantity"`
	MaxCapacity int       `json:"max_capacity"`
	AlertAction string    `json:"alert_action"`
}

type cleanupResponse struct {
	Expired       int         `json:"reservations_expired"`
	UnitsReleased int         `json:"stock_units_released"`
	Machines      []uuid.UUID `json:"machines"`
}

// AdminCleanupReservations expires lapsed reservations and refreshes the
// alerts of every machine that got stock back.
func AdminCleanupReservations(ledger StockLedger, alertSvc AlertService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ledger == nil || alertSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation ledger unavailable"))
			return
		}
		res, err := ledger.CleanupExpired(r.Context())
		alertSvc.Refresh(context.WithoutCancel(r.Context()), res.Machines...)
		if err != nil {
			writeServiceError(r.Context(), logg, w, err, "cleanup reservations")
			return
		}
		machines := res.Machines
		if machines == nil {
			machines = []uuid.UUID{}
		}
		responses.WriteSuccess(w, cleanupResponse{Expired: res.Expired, UnitsReleased: res.Units, Machines: machines})
	}
}

// AdminAdjustStock applies an audited restock or write-off to one slot and
// recalculates the machine's alert.
func AdminAdjustStock(ledger StockLedger, alertSvc AlertService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ledger == nil || alertSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation ledger unavailable"))
			return
		}
		stockID, err := validators.ParseUUIDParam(r, "stockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req adjustStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stock, err := ledger.AdjustStock(r.Context(), nil, reservations.AdjustInput{
			StockID: stockID,
			Delta:   req.Delta,
			Reason:  req.Reason,
		})
		if err != nil {
			writeServiceError(r.Context(), logg, w, err, "adjust stock")
			return
		}
		out, err := alertSvc.UpdateMachineAlerts(r.Context(), nil, stock.MachineID)
		if err != nil {
			writeServiceError(r.Context(), logg, w, err, "update machine alerts")
			return
		}
		responses.WriteSuccess(w, stockResponse{
			StockID:     stock.ID,
			MachineID:   stock.MachineID,
			ProductID:   stock.ProductID,
			SlotNumber:  stock.SlotNumber,
			Quantity:    stock.Quantity,
			MaxCapacity: stock.MaxCapacity,
			AlertAction: string(out.Action),
		})
	}
}

// AdminConfigureSlot binds a product to a free slot on a machine.
func AdminConfigureSlot(ledger StockLedger, alertSvc AlertService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ledger == nil || alertSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation ledger unavailable"))
			return
		}
		machineID, err := validators.ParseUUIDParam(r, "machineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req configureSlotRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stock, err := ledger.ConfigureSlot(r.Context(), reservations.SlotInput{
			MachineID:    machineID,
			ProductID:    req.ProductID,
			SlotNumber:   req.SlotNumber,
			MaxCapacity:  req.MaxCapacity,
			LowThreshold: req.LowThreshold,
			Quantity:     req.Quantity,
		})
		if err != nil {
			writeServiceError(r.Context(), logg, w, err, "configure slot")
			return
		}
		out, err := alertSvc.UpdateMachineAlerts(r.Context(), nil, machineID)
		if err != nil {
			writeServiceError(r.Context(), logg, w, err, "update machine alerts")
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, stockResponse{
			StockID:     stock.ID,
			MachineID:   stock.MachineID,
			ProductID:   stock.ProductID,
			SlotNumber:  stock.SlotNumber,
			Quantity:    stock.Quantity,
			MaxCapacity: stock.MaxCapacity,
			AlertAction: string(out.Action),
		})
	}
}
