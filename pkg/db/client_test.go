package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorbox-backend/pkg/config"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:db_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestInTxJoinsCallerTransaction(t *testing.T) {
	db := newTestDB(t)
	uow := NewUnitOfWork(db)
	ctx := context.Background()

	err := uow.WithTx(ctx, func(tx *gorm.DB) error {
		if !InTransaction(tx) {
			t.Fatalf("expected handle to be transactional")
		}
		if err := InTx(ctx, uow, tx, func(inner *gorm.DB) error {
			return inner.Create(&testModel{Name: "joined"}).Error
		}); err != nil {
			return err
		}
		return errors.New("abort outer")
	})
	if err == nil {
		t.Fatal("expected outer transaction error")
	}

	var count int64
	if err := db.Model(&testModel{}).Where("name = ?", "joined").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("joined write should roll back with caller, got %d rows", count)
	}
}

func TestInTxOpensOwnTransactionWithoutCaller(t *testing.T) {
	db := newTestDB(t)
	uow := NewUnitOfWork(db)
	ctx := context.Background()

	if InTransaction(db) {
		t.Fatalf("bare handle should not report a transaction")
	}
	if err := InTx(ctx, uow, nil, func(tx *gorm.DB) error {
		if !InTransaction(tx) {
			t.Fatalf("expected fresh transaction")
		}
		return tx.Create(&testModel{Name: "standalone"}).Error
	}); err != nil {
		t.Fatalf("InTx: %v", err)
	}
	var count int64
	if err := db.Model(&testModel{}).Where("name = ?", "standalone").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected committed row, got %d", count)
	}
}

func TestIsNotFound(t *testing.T) {
	db := newTestDB(t)
	var row testModel
	err := db.First(&row, "name = ?", "missing").Error
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if IsNotFound(errors.New("other")) {
		t.Fatalf("unexpected not found match")
	}
}

func TestDialectorFor(t *testing.T) {
	cases := []struct {
		driver  string
		name    string
		wantErr bool
	}{
		{driver: "", name: "postgres"},
		{driver: DriverPostgres, name: "postgres"},
		{driver: DriverSQLite, name: "sqlite"},
		{driver: "mysql", wantErr: true},
	}
	for _, tc := range cases {
		dialector, err := dialectorFor(config.DBConfig{Driver: tc.driver, DSN: "file:x?mode=memory"})
		if tc.wantErr {
			if err == nil {
				t.Fatalf("driver %q: expected error", tc.driver)
			}
			continue
		}
		if err != nil {
			t.Fatalf("driver %q: unexpected error %v", tc.driver, err)
		}
		if dialector.Name() != tc.name {
			t.Fatalf("driver %q: expected dialector %s, got %s", tc.driver, tc.name, dialector.Name())
		}
	}
}
