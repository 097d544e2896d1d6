package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/pkg/db/models"
	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
)

// Repository manages persistence for local payment records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListCleanupCandidates(ctx context.Context, staleBefore time.Time, limit int) ([]models.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, lastError *string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListCleanupCandidates returns non-terminal payments that are orphaned, whose
// order is gone or archived, or that were created before staleBefore. Oldest
// first.
func (r *repository) ListCleanupCandidates(ctx context.Context, staleBefore time.Time, limit int) ([]models.Payment, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("payments.*").
		Joins("LEFT JOIN orders ON orders.id = payments.order_id").
		Where("payments.status NOT IN ?", enums.TerminalPaymentStatuses()).
		Where("payments.order_id IS NULL OR orders.id IS NULL OR orders.archived_at IS NOT NULL OR payments.created_at < ?", staleBefore).
		Order("payments.created_at ASC").
		Order("payments.id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Payment
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus moves a payment from one status to another, recording
// lastError when given. It reports whether the row was changed, so a second
// run against an already-moved payment is a no-op.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, lastError *string) (bool, error) {
	updates := map[string]any{"status": to}
	if lastError != nil {
		updates["last_error_message"] = *lastError
	}
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
