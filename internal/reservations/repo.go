package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/vendorbox-backend/pkg/db/models"
	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
)

// Repository manages persistence for stock slots and their reservations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	LockStock(ctx context.Context, id uuid.UUID) (*models.Stock, error)
	LockStockForProduct(ctx context.Context, machineID, productID uuid.UUID) (*models.Stock, error)
	LockFirstStockForProduct(ctx context.Context, productID uuid.UUID, machineID *uuid.UUID) (*models.Stock, error)
	ListStocksByMachine(ctx context.Context, machineID uuid.UUID) ([]models.Stock, error)
	CreateStock(ctx context.Context, stock *models.Stock) error
	UpdateStockQuantity(ctx context.Context, id uuid.UUID, quantity int) error

	LockMachine(ctx context.Context, id uuid.UUID) (*models.Machine, error)
	UpdateMachineStatus(ctx context.Context, id uuid.UUID, status enums.MachineStatus) error

	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)

	Create(ctx context.Context, reservation *models.StockReservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.StockReservation, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.StockReservation, error)
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]models.StockReservation, error)
	Transition(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reservation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) locked(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *repository) LockStock(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	var stock models.Stock
	if err := r.locked(ctx).Where("id = ?", id).First(&stock).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *repository) LockStockForProduct(ctx context.Context, machineID, productID uuid.UUID) (*models.Stock, error) {
	var stock models.Stock
	if err := r.locked(ctx).
		Where("machine_id = ? AND product_id = ?", machineID, productID).
		Order("slot_number ASC").
		First(&stock).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *repository) LockFirstStockForProduct(ctx context.Context, productID uuid.UUID, machineID *uuid.UUID) (*models.Stock, error) {
	query := r.locked(ctx).Where("product_id = ?", productID)
	if machineID != nil {
		query = query.Where("machine_id = ?", *machineID)
	}
	var stock models.Stock
	if err := query.Order("slot_number ASC").Order("created_at ASC").First(&stock).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *repository) ListStocksByMachine(ctx context.Context, machineID uuid.UUID) ([]models.Stock, error) {
	var stocks []models.Stock
	if err := r.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("slot_number ASC").
		Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}

func (r *repository) CreateStock(ctx context.Context, stock *models.Stock) error {
	return r.db.WithContext(ctx).Create(stock).Error
}

func (r *repository) UpdateStockQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.Stock{}).
		Where("id = ?", id).
		Update("quantity", quantity).Error
}

func (r *repository) LockMachine(ctx context.Context, id uuid.UUID) (*models.Machine, error) {
	var machine models.Machine
	if err := r.locked(ctx).Where("id = ?", id).First(&machine).Error; err != nil {
		return nil, err
	}
	return &machine, nil
}

func (r *repository) UpdateMachineStatus(ctx context.Context, id uuid.UUID, status enums.MachineStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Machine{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Create(ctx context.Context, reservation *models.StockReservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.StockReservation, error) {
	var reservation models.StockReservation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&reservation).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.StockReservation, error) {
	var rows []models.StockReservation
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("reserved_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]models.StockReservation, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", enums.ReservationStatusActive, now).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.StockReservation
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Transition moves a reservation between statuses only if it is still in from.
// It reports whether the row was changed.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.StockReservation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":      to,
			"released_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
