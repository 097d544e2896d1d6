package reservations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/pkg/audit"
	dbpkg "github.com/angelmondragon/vendorbox-backend/pkg/db"
	"github.com/angelmondragon/vendorbox-backend/pkg/db/models"
	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorbox-backend/pkg/errors"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db     *gorm.DB
	ledger *Ledger
	audit  *audit.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:reservations_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	auditRepo := audit.NewRepository(db)
	ledger, err := NewLedger(LedgerParams{
		UnitOfWork: dbpkg.NewUnitOfWork(db),
		Repository: NewRepository(db),
		Audit:      audit.NewSink(auditRepo, nil),
		Now:        func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return &fixture{db: db, ledger: ledger, audit: auditRepo}
}

func (f *fixture) seedMachine(t *testing.T) models.Machine {
	t.Helper()
	m := models.Machine{Name: "lobby", Status: enums.MachineStatusIncomplete}
	require.NoError(t, f.db.Create(&m).Error)
	return m
}

func (f *fixture) seedStock(t *testing.T, machineID uuid.UUID, slot, qty, max int) models.Stock {
	t.Helper()
	s := models.Stock{
		MachineID:    machineID,
		ProductID:    uuid.New(),
		SlotNumber:   slot,
		Quantity:     qty,
		MaxCapacity:  max,
		LowThreshold: 1,
	}
	require.NoError(t, f.db.Create(&s).Error)
	return s
}

func (f *fixture) seedOrder(t *testing.T, machineID uuid.UUID, items ...models.OrderItem) models.Order {
	t.Helper()
	o := models.Order{
		MachineID: &machineID,
		Status:    enums.OrderStatusPending,
		ExpiresAt: testNow.Add(-time.Minute),
		Items:     items,
	}
	require.NoError(t, f.db.Create(&o).Error)
	return o
}

func (f *fixture) quantity(t *testing.T, stockID uuid.UUID) int {
	t.Helper()
	var s models.Stock
	require.NoError(t, f.db.First(&s, "id = ?", stockID).Error)
	return s.Quantity
}

func TestNewLedgerValidatesParams(t *testing.T) {
	_, err := NewLedger(LedgerParams{})
	require.Error(t, err)
}

func TestReleaseForOrderIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	machine := f.seedMachine(t)
	stock := f.seedStock(t, machine.ID, 1, 5, 5)
	order := f.seedOrder(t, machine.ID, models.OrderItem{ProductID: stock.ProductID, Quantity: 3, SlotNumber: 1})

	_, err := f.ledger.Create(ctx, nil, CreateInput{
		ProductID: stock.ProductID,
		MachineID: machine.ID,
		OrderID:   order.ID,
		Quantity:  3,
		ExpiresAt: testNow.Add(10 * time.Minute),
	})
	require.NoError(t, err)
	require.Equal(t, 2, f.quantity(t, stock.ID))

	first, err := f.ledger.ReleaseForOrder(ctx, nil, order.ID)
	require.NoError(t, err)
	require.Equal(t, 3, first.Units)
	require.Equal(t, []uuid.UUID{machine.ID}, first.Machines)
	require.Equal(t, 5, f.quantity(t, stock.ID))

	second, err := f.ledger.ReleaseForOrder(ctx, nil, order.ID)
	require.NoError(t, err)
	require.Zero(t, second.Units)
	require.Equal(t, 5, f.quantity(t, stock.ID))
}

func TestReleaseForOrderLegacyFallbackCreditsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	machine := f.seedMachine(t)
	stock := f.seedStock(t, machine.ID, 2, 1, 6)
	order := f.seedOrder(t, machine.ID, models.OrderItem{ProductID: stock.ProductID, Quantity: 2, SlotNumber: 2})

	first, err := f.ledger.ReleaseForOrder(ctx, nil, order.ID)
	require.NoError(t, err)
	require.Equal(t, 2, first.Units)
	require.Equal(t, 3, f.quantity(t, stock.ID))

	second, err := f.ledger.ReleaseForOrder(ctx, nil, order.ID)
	require.NoError(t, err)
	require.Zero(t, second.Units)
	require.Equal(t, 3, f.quantity(t, stock.ID))
}

func TestReleaseForOrderSameProductOnTwoItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	machine := f.seedMachine(t)
	stock := f.seedStock(t, machine.ID, 1, 10, 12)
	order := f.seedOrder(t, machine.ID,
		models.OrderItem{ProductID: stock.ProductID, Quantity: 1, SlotNumber: 1},
		models.OrderItem{ProductID: stock.ProductID, Quantity: 1, SlotNumber: 1},
	)
	for range 2 {
		_, err := f.ledger.Create(ctx, nil, CreateInput{
			ProductID: stock.ProductID, MachineID: machine.ID, OrderID: order.ID,
			Quantity: 1, ExpiresAt: testNow.Add(time.Hour),
		})
		require.NoError(t, err)
	}
	require.Equal(t, 8, f.quantity(t, stock.ID))

	first, err := f.ledger.ReleaseForOrder(ctx, nil, order.ID)
	require.NoError(t, err)
	require.Equal(t, 2, first.Units)
	require.Equal(t, 10, f.quantity(t, stock.ID))

	second, err := f.ledger.ReleaseForOrder(ctx, nil, order.ID)
	require.NoError(t, err)
	require.Zero(t, second.Units)
	require.Equal(t, 10, f.quantity(t, stock.ID))

	var markers int64
	require.NoError(t, f.db.Model(&models.StockReservation{}).Where("order_id = ?", order.ID).Count(&markers).Error)
	require.EqualValues(t, 2, markers, "no legacy marker rows for ledger-reserved products")
}

func TestReleaseForOrderLegacyItemsWithSharedProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	machine := f.seedMachine(t)
	stock := f.seedStock(t, machine.ID, 1, 2, 6)
	order := f.seedOrder(t, machine.ID,
		models.OrderItem{ProductID: stock.ProductID, Quantity: 1, SlotNumber: 1},
		models.OrderItem{ProductID: stock.ProductID, Quantity: 2, SlotNumber: 1},
	)

	first, err := f.ledger.ReleaseForOrder(ctx, nil, order.ID)
	require.NoError(t, err)
	require.Equal(t, 3, first.Units)
	require.Equal(t, 5, f.quantity(t, stock.ID))

	second, err := f.ledger.ReleaseForOrder(ctx, nil, order.ID)
	require.NoError(t, err)
	require.Zero(t, second.Units)
	require.Equal(t, 5, f.quantity(t, stock.ID))
}

func TestReleaseForOrderJoinsCallerTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	machine := f.seedMachine(t)
	stock := f.seedStock(t, machine.ID, 1, 4, 4)
	order := f.seedOrder(t, machine.ID, models.OrderItem{ProductID: stock.ProductID, Quantity: 2, SlotNumber: 1})
	_, err := f.ledger.Create(ctx, nil, CreateInput{
		ProductID: stock.ProductID, MachineID: machine.ID, OrderID: order.ID,
		Quantity: 2, ExpiresAt: testNow.Add(time.Hour),
	})
	require.NoError(t, err)

	err = f.db.Transaction(func(tx *gorm.DB) error {
		rel, err := f.ledger.ReleaseForOrder(ctx, tx, order.ID)
		require.NoError(t, err)
		require.Equal(t, 2, rel.Units)
		return errors.New("abort")
	})
	require.Error(t, err)
	require.Equal(t, 2, f.quantity(t, stock.ID), "release must roll back with the caller")
}

func TestCreateRejectsInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	machine := f.seedMachine(t)
	stock := f.seedStock(t, machine.ID, 1, 2, 5)

	_, err := f.ledger.Create(ctx, nil, CreateInput{
		ProductID: stock.ProductID, MachineID: machine.ID, OrderID: uuid.New(),
		Quantity: 3, ExpiresAt: testNow.Add(time.Hour),
	})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
	require.True(t, pkgerrors.IsDomain(err))
	require.Equal(t, 2, f.quantity(t, stock.ID))

	var count int64
	require.NoError(t, f.db.Model(&models.StockReservation{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateValidatesInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.Create(context.Background(), nil, CreateInput{Quantity: 0})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.ledger.Create(context.Background(), nil, CreateInput{
		ProductID: uuid.New(), MachineID: uuid.New(), OrderID: uuid.New(),
		Quantity: 1, ExpiresAt: testNow,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestCapacityInvariantAcrossCreateAndRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	machine := f.seedMachine(t)
	stock := f.seedStock(t, machine.ID, 1, 4, 4)

	var orders []models.Order
	for i := 0; i < 3; i++ {
		order := f.seedOrder(t, machine.ID, models.OrderItem{ProductID: stock.ProductID, Quantity: 2, SlotNumber: 1})
		orders = append(orders, order)
		_, err := f.ledger.Create(ctx, nil, CreateInput{
			ProductID: stock.ProductID, MachineID: machine.ID, OrderID: order.ID,
			Quantity: 2, ExpiresAt: testNow.Add(time.Hour),
		})
		if i < 2 {
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, ErrInsufficientStock)
		}
		q := f.quantity(t, stock.ID)
		require.GreaterOrEqual(t, q, 0)
		require.LessOrEqual(t, q, 4)
	}
	require.Zero(t, f.quantity(t, stock.ID))

	for _, order := range orders {
		_, err := f.ledger.ReleaseForOrder(ctx, nil, order.ID)
		require.NoError(t, err)
		q := f.quantity(t, stock.ID)
		require.GreaterOrEqual(t, q, 0)
		require.LessOrEqual(t, q, 4)
	}
	require.Equal(t, 4, f.quantity(t, stock.ID))
}

func TestIsValid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	machine := f.seedMachine(t)
	stock := f.seedStock(t, machine.ID, 1, 5, 5)

	live, err := f.ledger.Create(ctx, nil, CreateInput{
		ProductID: stock.ProductID, MachineID: machine.ID, OrderID: uuid.New(),
		Quantity: 1, ExpiresAt: testNow.Add(time.Minute),
	})
	require.NoError(t, err)
	lapsed, err := f.ledger.Create(ctx, nil, CreateInput{
		ProductID: stock.ProductID, MachineID: machine.ID, OrderID: uuid.New(),
		Quantity: 1, ExpiresAt: testNow.Add(-time.Minute),
	})
	require.NoError(t, err)

	ok, err := f.ledger.IsValid(ctx, live.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.ledger.IsValid(ctx, lapsed.ID)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = f.ledger.IsValid(ctx, uuid.New())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCleanupExpiredCreditsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	machine := f.seedMachine(t)
	stock := f.seedStock(t, machine.ID, 1, 5, 5)

	_, err := f.ledger.Create(ctx, nil, CreateInput{
		ProductID: stock.ProductID, MachineID: machine.ID, OrderID: uuid.New(),
		Quantity: 2, ExpiresAt: testNow.Add(-time.Minute),
	})
	require.NoError(t, err)
	keep, err := f.ledger.Create(ctx, nil, CreateInput{
		ProductID: stock.ProductID, MachineID: machine.ID, OrderID: uuid.New(),
		Quantity: 1, ExpiresAt: testNow.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, 2, f.quantity(t, stock.ID))

	res, err := f.ledger.CleanupExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Expired)
	require.Equal(t, 2, res.Units)
	require.Equal(t, []uuid.UUID{machine.ID}, res.Machines)
	require.Equal(t, 4, f.quantity(t, stock.ID))

	again, err := f.ledger.CleanupExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, again.Expired)

	ok, err := f.ledger.IsValid(ctx, keep.ID)
	require.NoError(t, err)
	require.True(t, ok)

	count, err := f.audit.CountByType(enums.AuditReservationExpired)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestAdjustStockBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	machine := f.seedMachine(t)
	stock := f.seedStock(t, machine.ID, 1, 2, 5)

	updated, err := f.ledger.AdjustStock(ctx, nil, AdjustInput{StockID: stock.ID, Delta: 3, Reason: "restock"})
	require.NoError(t, err)
	require.Equal(t, 5, updated.Quantity)

	_, err = f.ledger.AdjustStock(ctx, nil, AdjustInput{StockID: stock.ID, Delta: 1, Reason: "overfill"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.ledger.AdjustStock(ctx, nil, AdjustInput{StockID: stock.ID, Delta: -6, Reason: "write-off"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.ledger.AdjustStock(ctx, nil, AdjustInput{StockID: uuid.New(), Delta: 1, Reason: "ghost"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	require.Equal(t, 5, f.quantity(t, stock.ID))
	count, err := f.audit.CountByType(enums.AuditStockAdjusted)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestConfigureSlotBringsMachineOnline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	machine := f.seedMachine(t)

	for slot := 1; slot <= models.MachineSlotCapacity; slot++ {
		_, err := f.ledger.ConfigureSlot(ctx, SlotInput{
			MachineID: machine.ID, ProductID: uuid.New(), SlotNumber: slot,
			MaxCapacity: 10, LowThreshold: 2, Quantity: 10,
		})
		require.NoError(t, err)

		var m models.Machine
		require.NoError(t, f.db.First(&m, "id = ?", machine.ID).Error)
		if slot < models.MachineSlotCapacity {
			require.Equal(t, enums.MachineStatusIncomplete, m.Status)
		} else {
			require.Equal(t, enums.MachineStatusOnline, m.Status)
		}
	}

	_, err := f.ledger.ConfigureSlot(ctx, SlotInput{
		MachineID: machine.ID, ProductID: uuid.New(), SlotNumber: 3, MaxCapacity: 10,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestConfigureSlotValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	machine := f.seedMachine(t)

	_, err := f.ledger.ConfigureSlot(ctx, SlotInput{
		MachineID: machine.ID, ProductID: uuid.New(), SlotNumber: 7, MaxCapacity: 10,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.ledger.ConfigureSlot(ctx, SlotInput{
		MachineID: machine.ID, ProductID: uuid.New(), SlotNumber: 1, MaxCapacity: 5, Quantity: 6,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.ledger.ConfigureSlot(ctx, SlotInput{
		MachineID: machine.ID, ProductID: uuid.New(), SlotNumber: 1, MaxCapacity: 5,
	})
	require.NoError(t, err)

	_, err = f.ledger.ConfigureSlot(ctx, SlotInput{
		MachineID: machine.ID, ProductID: uuid.New(), SlotNumber: 1, MaxCapacity: 5,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	_, err = f.ledger.ConfigureSlot(ctx, SlotInput{
		MachineID: uuid.New(), ProductID: uuid.New(), SlotNumber: 2, MaxCapacity: 5,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
