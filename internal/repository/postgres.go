// Package repository implements the domain repositories on PostgreSQL via
// pgx. Each repository works against the DB interface so the same code runs
// on the shared pool and inside transactions.
package repository

import (
	"context"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/shopcart-api/db"
	"github.com/xenking/shopcart-api/internal/domain/checkout"
)

// DB is the subset of pgx operations the repositories need. Both
// *pgxpool.Pool and pgx.Tx satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, db.Schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

var _ checkout.TxRunner = (*TxRunner)(nil)

// TxRunner implements checkout.TxRunner on a pgx pool. Each InTx call opens
// one database transaction, hands transaction-bound repositories to fn, and
// commits on nil / rolls back on error or panic.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner returns a TxRunner over the given pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// InTx runs fn inside a single read-committed transaction.
func (r *TxRunner) InTx(ctx context.Context, fn func(ctx context.Context, s checkout.Stores) error) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(ctx, checkout.Stores{
			Carts:    NewCartRepository(tx),
			Products: NewProductRepository(tx),
			Orders:   NewOrderRepository(tx),
		})
	})
}
