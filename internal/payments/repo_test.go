package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/pkg/db/models"
	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func TestListCleanupCandidates(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	staleBefore := now.Add(-7 * 24 * time.Hour)

	live := models.Order{Status: enums.OrderStatusRequiresPayment, ExpiresAt: now.Add(time.Hour)}
	archivedAt := now.Add(-time.Hour)
	archived := models.Order{Status: enums.OrderStatusExpired, ExpiresAt: now, ArchivedAt: &archivedAt}
	require.NoError(t, db.Create(&live).Error)
	require.NoError(t, db.Create(&archived).Error)
	missingOrder := uuid.New()

	mk := func(orderID *uuid.UUID, status enums.PaymentStatus, created time.Time) models.Payment {
		p := models.Payment{OrderID: orderID, Status: status, Currency: "eur", CreatedAt: created}
		require.NoError(t, db.Create(&p).Error)
		return p
	}

	orphan := mk(nil, enums.PaymentStatusRequiresPaymentMethod, now.Add(-time.Hour))
	ancient := mk(&live.ID, enums.PaymentStatusProcessing, now.Add(-8*24*time.Hour))
	onArchived := mk(&archived.ID, enums.PaymentStatusRequiresAction, now.Add(-2*time.Hour))
	onMissing := mk(&missingOrder, enums.PaymentStatusRequiresCapture, now.Add(-3*time.Hour))
	mk(&live.ID, enums.PaymentStatusRequiresPaymentMethod, now.Add(-time.Hour))
	mk(nil, enums.PaymentStatusSucceeded, now.Add(-30*24*time.Hour))
	mk(nil, enums.PaymentStatusCanceled, now.Add(-30*24*time.Hour))

	got, err := repo.ListCleanupCandidates(context.Background(), staleBefore, 0)
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []uuid.UUID{ancient.ID, onMissing.ID, onArchived.ID, orphan.ID}, ids)

	limited, err := repo.ListCleanupCandidates(context.Background(), staleBefore, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestUpdateStatusIsGuarded(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	p := models.Payment{Status: enums.PaymentStatusProcessing, Currency: "eur"}
	require.NoError(t, db.Create(&p).Error)

	reason := "abandoned"
	changed, err := repo.UpdateStatus(ctx, p.ID, enums.PaymentStatusProcessing, enums.PaymentStatusCanceled, &reason)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = repo.UpdateStatus(ctx, p.ID, enums.PaymentStatusProcessing, enums.PaymentStatusCanceled, &reason)
	require.NoError(t, err)
	require.False(t, changed)

	found, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCanceled, found.Status)
	require.NotNil(t, found.LastErrorMessage)
	assert.Equal(t, "abandoned", *found.LastErrorMessage)
}
