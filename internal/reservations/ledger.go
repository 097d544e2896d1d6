package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/pkg/audit"
	dbpkg "github.com/angelmondragon/vendorbox-backend/pkg/db"
	"github.com/angelmondragon/vendorbox-backend/pkg/db/models"
	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorbox-backend/pkg/errors"
	"github.com/angelmondragon/vendorbox-backend/pkg/logger"
)

const defaultCleanupLimit = 500

// ErrInsufficientStock is wrapped by Create when a slot cannot cover the request.
var ErrInsufficientStock = errors.New("insufficient stock")

// Ledger is the only component allowed to debit or credit Stock.quantity.
type Ledger struct {
	uow          dbpkg.UnitOfWork
	repo         Repository
	audit        audit.Recorder
	logg         *logger.Logger
	validate     *validator.Validate
	slotCapacity int
	cleanupLimit int
	now          func() time.Time
}

// LedgerParams wires a Ledger.
type LedgerParams struct {
	UnitOfWork   dbpkg.UnitOfWork
	Repository   Repository
	Audit        audit.Recorder
	Logger       *logger.Logger
	SlotCapacity int
	CleanupLimit int
	Now          func() time.Time
}

// NewLedger validates params and returns a ready Ledger.
func NewLedger(params LedgerParams) (*Ledger, error) {
	if params.UnitOfWork == nil {
		return nil, fmt.Errorf("unit of work required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	capacity := params.SlotCapacity
	if capacity <= 0 {
		capacity = models.MachineSlotCapacity
	}
	limit := params.CleanupLimit
	if limit <= 0 {
		limit = defaultCleanupLimit
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Ledger{
		uow:          params.UnitOfWork,
		repo:         params.Repository,
		audit:        params.Audit,
		logg:         params.Logger,
		validate:     validator.New(),
		slotCapacity: capacity,
		cleanupLimit: limit,
		now:          now,
	}, nil
}

// Release summarizes the stock returned for one order.
type Release struct {
	Units    int
	Machines []uuid.UUID
}

// ReleaseForOrder returns every active reservation held by the order to its
// slot. Items whose product has no reservation rows on the order (orders
// placed before reservations existed) credit the first slot stocking the
// product directly and leave a released marker row behind, so a second call
// releases nothing.
//
// When tx is non-nil the work joins it; otherwise a transaction is opened.
func (l *Ledger) ReleaseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (Release, error) {
	var out Release
	err := dbpkg.InTx(ctx, l.uow, tx, func(tx *gorm.DB) error {
		repo := l.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if dbpkg.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}
		rows, err := repo.ListByOrder(ctx, orderID)
		if err != nil {
			return err
		}

		stocks := map[uuid.UUID]*models.Stock{}
		lockStock := func(id uuid.UUID) (*models.Stock, error) {
			if s, ok := stocks[id]; ok {
				return s, nil
			}
			s, err := repo.LockStock(ctx, id)
			if err != nil {
				return nil, err
			}
			stocks[id] = s
			return s, nil
		}

		machines := map[uuid.UUID]bool{}
		reserved := map[uuid.UUID]bool{}
		now := l.now()

		for _, row := range rows {
			stock, err := lockStock(row.StockID)
			if err != nil {
				return fmt.Errorf("lock stock %s: %w", row.StockID, err)
			}
			reserved[stock.ProductID] = true
			if row.Status != enums.ReservationStatusActive {
				continue
			}
			changed, err := repo.Transition(ctx, row.ID, enums.ReservationStatusActive, enums.ReservationStatusReleased, now)
			if err != nil {
				return err
			}
			if !changed {
				continue
			}
			if err := l.credit(ctx, repo, stock, row.Quantity); err != nil {
				return err
			}
			out.Units += row.Quantity
			machines[stock.MachineID] = true
			l.audit.Record(ctx, tx, audit.Event{
				Type:          enums.AuditReservationReleased,
				AggregateType: enums.AggregateReservation,
				AggregateID:   row.ID,
				OrderID:       &orderID,
				Data: map[string]any{
					"stock_id": stock.ID,
					"quantity": row.Quantity,
				},
			})
		}

		// Products with any row, active or not, were reserved through the
		// ledger; only the rest take the direct-credit path.
		for _, item := range order.Items {
			if reserved[item.ProductID] || item.Quantity <= 0 {
				continue
			}

			stock, err := repo.LockFirstStockForProduct(ctx, item.ProductID, order.MachineID)
			if err != nil {
				if dbpkg.IsNotFound(err) {
					l.warn(ctx, orderID, fmt.Sprintf("no stock row for product %s; nothing to release", item.ProductID))
					continue
				}
				return err
			}
			if cached, ok := stocks[stock.ID]; ok {
				stock = cached
			} else {
				stocks[stock.ID] = stock
			}
			marker := &models.StockReservation{
				StockID:    stock.ID,
				OrderID:    orderID,
				Quantity:   item.Quantity,
				Status:     enums.ReservationStatusReleased,
				ReservedAt: order.CreatedAt,
				ExpiresAt:  order.ExpiresAt,
				ReleasedAt: &now,
			}
			if err := repo.Create(ctx, marker); err != nil {
				return err
			}
			if err := l.credit(ctx, repo, stock, item.Quantity); err != nil {
				return err
			}
			out.Units += item.Quantity
			machines[stock.MachineID] = true
			l.audit.Record(ctx, tx, audit.Event{
				Type:          enums.AuditReservationReleased,
				AggregateType: enums.AggregateStock,
				AggregateID:   stock.ID,
				OrderID:       &orderID,
				Data: map[string]any{
					"quantity": item.Quantity,
					"legacy":   true,
				},
			})
		}
		out.Machines = keys(machines)
		return nil
	})
	if err != nil {
		return Release{}, err
	}
	return out, nil
}

// CreateInput describes a new reservation.
type CreateInput struct {
	ProductID uuid.UUID `validate:"required"`
	MachineID uuid.UUID `validate:"required"`
	OrderID   uuid.UUID `validate:"required"`
	Quantity  int       `validate:"gt=0"`
	ExpiresAt time.Time `validate:"required"`
}

// Create debits the machine's slot for the product and records the
// reservation in one transaction. This is the only stock-debit path.
func (l *Ledger) Create(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.StockReservation, error) {
	if err := l.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reservation request")
	}
	var reservation *models.StockReservation
	err := dbpkg.InTx(ctx, l.uow, tx, func(tx *gorm.DB) error {
		repo := l.repo.WithTx(tx)
		stock, err := repo.LockStockForProduct(ctx, input.MachineID, input.ProductID)
		if err != nil {
			if dbpkg.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product is not stocked on this machine")
			}
			return err
		}
		if input.Quantity > stock.Quantity {
			return pkgerrors.Wrap(pkgerrors.CodeInsufficientStock, ErrInsufficientStock, "not enough units in slot").
				WithDetails(map[string]any{
					"stock_id":  stock.ID,
					"requested": input.Quantity,
					"available": stock.Quantity,
				})
		}
		row := &models.StockReservation{
			StockID:    stock.ID,
			OrderID:    input.OrderID,
			Quantity:   input.Quantity,
			Status:     enums.ReservationStatusActive,
			ReservedAt: l.now(),
			ExpiresAt:  input.ExpiresAt.UTC(),
		}
		if err := repo.Create(ctx, row); err != nil {
			return err
		}
		if err := repo.UpdateStockQuantity(ctx, stock.ID, stock.Quantity-input.Quantity); err != nil {
			return err
		}
		l.audit.Record(ctx, tx, audit.Event{
			Type:          enums.AuditReservationCreated,
			AggregateType: enums.AggregateReservation,
			AggregateID:   row.ID,
			OrderID:       &input.OrderID,
			Data: map[string]any{
				"stock_id":     stock.ID,
				"quantity":     input.Quantity,
				"quantity_now": stock.Quantity - input.Quantity,
			},
		})
		reservation = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// IsValid reports whether the reservation is active and not yet expired.
func (l *Ledger) IsValid(ctx context.Context, id uuid.UUID) (bool, error) {
	row, err := l.repo.FindByID(ctx, id)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return row.Status == enums.ReservationStatusActive && row.ExpiresAt.After(l.now()), nil
}

// Cleanup summarizes one CleanupExpired pass.
type Cleanup struct {
	Expired  int
	Units    int
	Machines []uuid.UUID
}

// CleanupExpired expires active reservations whose hold has lapsed and returns
// their units to stock. Each reservation commits on its own; the first storage
// error stops the pass and is returned with the work done so far.
func (l *Ledger) CleanupExpired(ctx context.Context) (Cleanup, error) {
	var out Cleanup
	rows, err := l.repo.ListExpiredActive(ctx, l.now(), l.cleanupLimit)
	if err != nil {
		return out, err
	}
	machines := map[uuid.UUID]bool{}
	for _, row := range rows {
		err := l.uow.WithTx(ctx, func(tx *gorm.DB) error {
			repo := l.repo.WithTx(tx)
			stock, err := repo.LockStock(ctx, row.StockID)
			if err != nil {
				return err
			}
			changed, err := repo.Transition(ctx, row.ID, enums.ReservationStatusActive, enums.ReservationStatusExpired, l.now())
			if err != nil || !changed {
				return err
			}
			if err := l.credit(ctx, repo, stock, row.Quantity); err != nil {
				return err
			}
			out.Expired++
			out.Units += row.Quantity
			machines[stock.MachineID] = true
			orderID := row.OrderID
			l.audit.Record(ctx, tx, audit.Event{
				Type:          enums.AuditReservationExpired,
				AggregateType: enums.AggregateReservation,
				AggregateID:   row.ID,
				OrderID:       &orderID,
				Data: map[string]any{
					"stock_id":   stock.ID,
					"quantity":   row.Quantity,
					"expires_at": row.ExpiresAt,
				},
			})
			return nil
		})
		if err != nil {
			out.Machines = keys(machines)
			return out, fmt.Errorf("expire reservation %s: %w", row.ID, err)
		}
	}
	out.Machines = keys(machines)
	return out, nil
}

// AdjustInput is an administrative restock or write-off.
type AdjustInput struct {
	StockID uuid.UUID `validate:"required"`
	Delta   int       `validate:"ne=0"`
	Reason  string    `validate:"required,max=200"`
}

// AdjustStock applies an audited manual quantity change. The result must stay
// within 0..max_capacity.
func (l *Ledger) AdjustStock(ctx context.Context, tx *gorm.DB, input AdjustInput) (*models.Stock, error) {
	if err := l.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stock adjustment")
	}
	var out *models.Stock
	err := dbpkg.InTx(ctx, l.uow, tx, func(tx *gorm.DB) error {
		repo := l.repo.WithTx(tx)
		stock, err := repo.LockStock(ctx, input.StockID)
		if err != nil {
			if dbpkg.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
			}
			return err
		}
		next := stock.Quantity + input.Delta
		if next < 0 || next > stock.MaxCapacity {
			return pkgerrors.New(pkgerrors.CodeValidation, "adjustment leaves quantity outside slot capacity").
				WithDetails(map[string]any{
					"quantity":     stock.Quantity,
					"delta":        input.Delta,
					"max_capacity": stock.MaxCapacity,
				})
		}
		if err := repo.UpdateStockQuantity(ctx, stock.ID, next); err != nil {
			return err
		}
		l.audit.Record(ctx, tx, audit.Event{
			Type:          enums.AuditStockAdjusted,
			AggregateType: enums.AggregateStock,
			AggregateID:   stock.ID,
			Data: map[string]any{
				"machine_id": stock.MachineID,
				"from":       stock.Quantity,
				"to":         next,
				"reason":     input.Reason,
			},
		})
		stock.Quantity = next
		out = stock
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SlotInput configures a new slot on a machine.
type SlotInput struct {
	MachineID    uuid.UUID `validate:"required"`
	ProductID    uuid.UUID `validate:"required"`
	SlotNumber   int       `validate:"gte=1"`
	MaxCapacity  int       `validate:"gt=0"`
	LowThreshold int       `validate:"gte=0,ltefield=MaxCapacity"`
	Quantity     int       `validate:"gte=0,ltefield=MaxCapacity"`
}

// ConfigureSlot adds a stock row to a machine. Once every slot is configured
// an incomplete machine is brought online.
func (l *Ledger) ConfigureSlot(ctx context.Context, input SlotInput) (*models.Stock, error) {
	if err := l.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid slot configuration")
	}
	if input.SlotNumber > l.slotCapacity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("slot number must be between 1 and %d", l.slotCapacity))
	}
	var out *models.Stock
	err := l.uow.WithTx(ctx, func(tx *gorm.DB) error {
		repo := l.repo.WithTx(tx)
		machine, err := repo.LockMachine(ctx, input.MachineID)
		if err != nil {
			if dbpkg.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "machine not found")
			}
			return err
		}
		existing, err := repo.ListStocksByMachine(ctx, machine.ID)
		if err != nil {
			return err
		}
		if len(existing) >= l.slotCapacity {
			return pkgerrors.New(pkgerrors.CodeConflict, "machine has no free slots")
		}
		for _, s := range existing {
			if s.SlotNumber == input.SlotNumber {
				return pkgerrors.New(pkgerrors.CodeConflict, "slot already occupied")
			}
		}
		stock := &models.Stock{
			MachineID:    machine.ID,
			ProductID:    input.ProductID,
			SlotNumber:   input.SlotNumber,
			MaxCapacity:  input.MaxCapacity,
			LowThreshold: input.LowThreshold,
			Quantity:     input.Quantity,
		}
		if err := repo.CreateStock(ctx, stock); err != nil {
			if dbpkg.IsUniqueViolation(err, "stocks_machine_slot_unique") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "slot already occupied")
			}
			if typed := pkgerrors.FromConstraint(err); typed != nil {
				return typed
			}
			return err
		}
		if len(existing)+1 == l.slotCapacity && machine.Status == enums.MachineStatusIncomplete {
			if err := repo.UpdateMachineStatus(ctx, machine.ID, enums.MachineStatusOnline); err != nil {
				return err
			}
		}
		l.audit.Record(ctx, tx, audit.Event{
			Type:          enums.AuditSlotConfigured,
			AggregateType: enums.AggregateMachine,
			AggregateID:   machine.ID,
			Data: map[string]any{
				"stock_id":    stock.ID,
				"slot_number": stock.SlotNumber,
				"product_id":  stock.ProductID,
			},
		})
		out = stock
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// credit returns units to a slot, never past its capacity.
func (l *Ledger) credit(ctx context.Context, repo Repository, stock *models.Stock, units int) error {
	next := stock.Quantity + units
	if next > stock.MaxCapacity {
		l.warn(ctx, uuid.Nil, fmt.Sprintf("credit to stock %s clamped from %d to capacity %d", stock.ID, next, stock.MaxCapacity))
		next = stock.MaxCapacity
	}
	if err := repo.UpdateStockQuantity(ctx, stock.ID, next); err != nil {
		return err
	}
	stock.Quantity = next
	return nil
}

func (l *Ledger) warn(ctx context.Context, orderID uuid.UUID, msg string) {
	if l.logg == nil {
		return
	}
	logCtx := ctx
	if orderID != uuid.Nil {
		logCtx = l.logg.WithOrderID(ctx, orderID.String())
	}
	l.logg.Warn(logCtx, msg)
}

func keys(set map[uuid.UUID]bool) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
