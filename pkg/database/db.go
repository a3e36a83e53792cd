// Package database wraps sqlx with the query surface the repositories use:
// context-bound reads and writes, context-propagated transactions, jsonb
// column round-tripping and schema migrations.
package database

import (
	"context"
	"database/sql"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

// DB is the repository-facing query surface.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)

	// GetTx returns the transaction already open on the context, or begins
	// a new one and binds it to the returned context. Only the call that
	// opened the transaction can commit or roll it back.
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, Tx, error)
}

// DatabaseInstance adapts a *sqlx.DB to the DB interface.
type DatabaseInstance struct {
	*sqlx.DB
	logger ectologger.Logger
}

func NewDatabaseInstance(db *sqlx.DB, logger ectologger.Logger) DB {
	return &DatabaseInstance{
		DB:     db,
		logger: logger,
	}
}

func (db *DatabaseInstance) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, Tx, error) {
	if existing, ok := ctx.Value(txKey).(*transaction); ok && existing.IsOpen() {
		return ctx, nested{existing}, nil
	}

	sqlxTx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		db.logger.WithContext(ctx).WithError(err).Error("Failed to begin transaction")
		return ctx, nil, err
	}

	t := &transaction{Tx: sqlxTx, logger: db.logger}
	return context.WithValue(ctx, txKey, t), t, nil
}
