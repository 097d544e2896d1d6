package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/pkg/db/models"
	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
)

// Repository exposes the order reads and writes the reconciliation sweeps need.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListExpirationCandidates(ctx context.Context, now time.Time, limit int) ([]models.Order, error)
	MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	orders := []models.Order{order}
	if err := r.attachPayments(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListExpirationCandidates returns pre-payment orders whose expiry has passed,
// oldest expiry first, with items and attached payment loaded.
func (r *repository) ListExpirationCandidates(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("status IN ? AND expires_at < ?", enums.ExpirableOrderStatuses(), now).
		Order("expires_at ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	if err := r.attachPayments(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkExpired moves the order to expired only while it is still awaiting
// payment. It reports whether the row was changed.
func (r *repository) MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, enums.ExpirableOrderStatuses()).
		Updates(map[string]any{
			"status":     enums.OrderStatusExpired,
			"expired_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// attachPayments links each order to its open payment, falling back to the
// most recent one when every payment is terminal.
func (r *repository) attachPayments(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	var payments []models.Payment
	if err := r.db.WithContext(ctx).
		Where("order_id IN ?", ids).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		return err
	}
	byOrder := map[uuid.UUID]*models.Payment{}
	for i := range payments {
		p := &payments[i]
		if p.OrderID == nil {
			continue
		}
		current, ok := byOrder[*p.OrderID]
		if !ok || (current.Status.Terminal() && !p.Status.Terminal()) {
			byOrder[*p.OrderID] = p
		}
	}
	for i := range orders {
		orders[i].Payment = byOrder[orders[i].ID]
	}
	return nil
}
