package alerts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/vendorbox-backend/pkg/db/models"
	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
)

// Repository manages persistence for machine alerts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	LockMachine(ctx context.Context, id uuid.UUID) (*models.Machine, error)
	ListMachineIDs(ctx context.Context) ([]uuid.UUID, error)
	ListStocksByMachine(ctx context.Context, machineID uuid.UUID) ([]models.Stock, error)

	FindByID(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	ListActiveByMachine(ctx context.Context, machineID uuid.UUID) ([]models.Alert, error)
	ListActive(ctx context.Context) ([]models.Alert, error)
	ListMachinesWithDuplicateActive(ctx context.Context) ([]uuid.UUID, error)
	Create(ctx context.Context, alert *models.Alert) error
	UpdateContent(ctx context.Context, id uuid.UUID, level enums.AlertLevel, stockID *uuid.UUID, message string, metadata json.RawMessage) error
	Close(ctx context.Context, id uuid.UUID, status enums.AlertStatus, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an alert repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LockMachine(ctx context.Context, id uuid.UUID) (*models.Machine, error) {
	var machine models.Machine
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&machine).Error; err != nil {
		return nil, err
	}
	return &machine, nil
}

func (r *repository) ListMachineIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Machine{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
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

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	var alert models.Alert
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// ListActiveByMachine returns the machine's active alerts, newest first.
func (r *repository) ListActiveByMachine(ctx context.Context, machineID uuid.UUID) ([]models.Alert, error) {
	var rows []models.Alert
	if err := r.db.WithContext(ctx).
		Where("machine_id = ? AND is_active = ?", machineID, true).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Alert, error) {
	var rows []models.Alert
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListMachinesWithDuplicateActive(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("is_active = ?", true).
		Group("machine_id").
		Having("COUNT(*) > 1").
		Pluck("machine_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) Create(ctx context.Context, alert *models.Alert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *repository) UpdateContent(ctx context.Context, id uuid.UUID, level enums.AlertLevel, stockID *uuid.UUID, message string, metadata json.RawMessage) error {
	return r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"level":    level,
			"stock_id": stockID,
			"message":  message,
			"metadata": string(metadata),
		}).Error
}

// Close deactivates an active alert. It reports whether the row was changed.
func (r *repository) Close(ctx context.Context, id uuid.UUID, status enums.AlertStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{
			"is_active":   false,
			"status":      status,
			"resolved_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
