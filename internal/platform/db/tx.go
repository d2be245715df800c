package db

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithTx executes a function within a transaction using the RepeatableRead isolation level.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// WithPrincipalTx runs fn in a transaction with the calling principal bound
// to the app.principal_id setting, so row-security policies re-validate the
// mutation against the caller. SET LOCAL scopes the binding to this
// transaction only.
func WithPrincipalTx(ctx context.Context, pool *pgxpool.Pool, principalID int64, fn func(pgx.Tx) error) error {
	return WithTx(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT set_config('app.principal_id', $1, true)`, strconv.FormatInt(principalID, 10)); err != nil {
			return fmt.Errorf("platform/db: bind principal: %w", err)
		}
		return fn(tx)
	})
}

// WithPrincipal acquires a single connection, binds the calling principal
// for the duration of fn, and clears the binding before the connection is
// returned to the pool. Read paths go through this so row-security SELECT
// policies see the caller instead of a NULL principal.
func WithPrincipal(ctx context.Context, pool *pgxpool.Pool, principalID int64, fn func(conn *pgxpool.Conn) error) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("platform/db: acquire: %w", err)
	}
	defer func() {
		// The reset must run even when ctx is already cancelled; a pooled
		// connection must never carry a stale principal binding.
		_, _ = conn.Exec(context.WithoutCancel(ctx), `SELECT set_config('app.principal_id', '', false)`)
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, `SELECT set_config('app.principal_id', $1, false)`, strconv.FormatInt(principalID, 10)); err != nil {
		return fmt.Errorf("platform/db: bind principal: %w", err)
	}
	return fn(conn)
}
