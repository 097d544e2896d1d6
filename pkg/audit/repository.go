package audit

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/pkg/db/models"
	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event *models.AuditEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(event).Error
}

// ListForAggregate returns the events recorded against one aggregate, oldest first.
func (r *Repository) ListForAggregate(aggregateID uuid.UUID) ([]models.AuditEvent, error) {
	var rows []models.AuditEvent
	err := r.db.Where("aggregate_id = ?", aggregateID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// CountByType returns how many events of the given type exist.
func (r *Repository) CountByType(eventType enums.AuditEventType) (int64, error) {
	var count int64
	err := r.db.Model(&models.AuditEvent{}).Where("event_type = ?", eventType).Count(&count).Error
	return count, err
}
