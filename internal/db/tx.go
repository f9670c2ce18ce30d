package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
// Repositories run their statements through it so the same method works
// against the pool or inside an open transaction.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type txKey struct{}

func withTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction carried by ctx, or nil when the
// caller is not inside a unit of work.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// Runner executes a function as one atomic unit of work. The open
// transaction travels in ctx so repository reads and writes inside fn
// all land on the same connection.
type Runner interface {
	// Serializable runs fn in a SERIALIZABLE transaction. Conflicting
	// concurrent units abort with a serialization failure instead of
	// both committing.
	Serializable(ctx context.Context, fn func(ctx context.Context) error) error
	// Transact runs fn in a transaction at the default isolation level.
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}

type PoolRunner struct {
	pool *pgxpool.Pool
}

func NewRunner(pool *pgxpool.Pool) *PoolRunner {
	return &PoolRunner{pool: pool}
}

func (r *PoolRunner) Serializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.run(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
}

func (r *PoolRunner) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.run(ctx, pgx.TxOptions{}, fn)
}

func (r *PoolRunner) run(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context) error) error {
	tx, err := r.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(withTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// IsSerializationFailure reports whether err is a Postgres serialization
// failure (SQLSTATE 40001), the signature of a lost race between two
// serializable transactions.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

// UniqueConstraint returns the name of the violated unique constraint
// when err is a unique violation (SQLSTATE 23505), or "" otherwise.
func UniqueConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName
	}
	return ""
}
