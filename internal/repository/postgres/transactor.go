package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Transactor runs fn so that every repository call made with the ctx it
// receives shares one transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

var _ Transactor = (*PgTransactor)(nil)

type PgTransactor struct {
	db     *DB
	opts   pgx.TxOptions
	logger *zap.Logger
}

func NewTransactor(db *DB, logger *zap.Logger) *PgTransactor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PgTransactor{
		db:     db,
		opts:   pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
		logger: logger,
	}
}

type txKey struct{}

func txFrom(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok && tx != nil
}

// WithTx commits when fn returns nil and rolls back otherwise. A ctx that
// already carries a transaction is reused, so nested calls commit with the
// outermost one. Errors from fn are returned as is; begin and commit
// failures are storage errors.
func (t *PgTransactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}

	var fnErr error
	err := pgx.BeginTxFunc(ctx, t.db.Pool, t.opts, func(tx pgx.Tx) error {
		fnErr = fn(context.WithValue(ctx, txKey{}, tx))
		return fnErr
	})
	switch {
	case err == nil:
		return nil
	case fnErr != nil:
		t.logger.Debug("tx rolled back", zap.Error(fnErr))
		return fnErr
	default:
		t.logger.Error("tx failed", zap.Error(err))
		return storageErr("tx", err)
	}
}

type execQueryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// execQueryer returns the transaction in ctx, or the pool outside one.
func (db *DB) execQueryer(ctx context.Context) execQueryer {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return db.Pool
}
