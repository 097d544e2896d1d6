package db

import (
	"context"

	"gorm.io/gorm"
)

// UnitOfWork runs fn atomically against the primary store.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormUnitOfWork struct {
	conn *gorm.DB
}

// NewUnitOfWork adapts a bare GORM handle (tests, tooling) to UnitOfWork.
func NewUnitOfWork(conn *gorm.DB) UnitOfWork {
	return gormUnitOfWork{conn: conn}
}

func (u gormUnitOfWork) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return u.conn.WithContext(ctx).Transaction(fn)
}

// InTx runs fn on the caller's transaction when one is supplied; otherwise it
// opens a fresh one from uow. This lets ledger and alert writes either join a
// sweep's transaction or stand alone.
func InTx(ctx context.Context, uow UnitOfWork, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx.WithContext(ctx))
	}
	return uow.WithTx(ctx, fn)
}

// InTransaction reports whether conn is bound to an open transaction.
func InTransaction(conn *gorm.DB) bool {
	if conn == nil || conn.Statement == nil {
		return false
	}
	_, ok := conn.Statement.ConnPool.(gorm.TxCommitter)
	return ok
}
