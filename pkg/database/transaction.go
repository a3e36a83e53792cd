package database

import (
	"context"
	"database/sql"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

type txKeyType struct{}

var txKey txKeyType

// Tx is the transactional query surface. Rollback after Commit is a no-op,
// so callers can defer it unconditionally. A Tx obtained from a context
// that already carries one is a participant handle: its Commit and
// Rollback do nothing, leaving the outcome to the opener.
type Tx interface {
	IsOpen() bool
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type transaction struct {
	*sqlx.Tx
	logger ectologger.Logger
	closed bool
}

func (t *transaction) IsOpen() bool {
	return !t.closed
}

func (t *transaction) Commit(ctx context.Context) error {
	if t.closed {
		return nil
	}
	if err := t.Tx.Commit(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Error("Failed to commit transaction")
		return err
	}
	t.closed = true
	return nil
}

func (t *transaction) Rollback(ctx context.Context) error {
	if t.closed {
		return nil
	}
	if err := t.Tx.Rollback(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Error("Failed to roll back transaction")
		return err
	}
	t.closed = true
	return nil
}

// nested is the handle returned when a transaction is already open on the
// context.
type nested struct {
	*transaction
}

func (n nested) Commit(ctx context.Context) error   { return nil }
func (n nested) Rollback(ctx context.Context) error { return nil }
