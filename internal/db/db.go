package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"qamod/internal/models"
	"qamod/internal/moderation"
	"qamod/migrations"
)

// querier is the subset of pgx shared by the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries holds every store query. It runs against the pool on *DB and
// against the open transaction on *Tx.
type Queries struct {
	q querier
}

// Options tunes transaction behavior.
type Options struct {
	// LockTimeout bounds how long a statement waits for a row lock.
	LockTimeout time.Duration
	// MaxRetries is how often a transaction reruns after a transient failure.
	MaxRetries uint64
}

// DB wraps a pgxpool connection pool.
type DB struct {
	Queries
	Pool *pgxpool.Pool
	opts Options
}

// Tx is a store transaction. It implements moderation.Repo.
type Tx struct {
	Queries
	tx pgx.Tx
}

var _ moderation.Store = (*DB)(nil)
var _ moderation.Repo = (*Tx)(nil)

// New creates a new database connection pool.
func New(ctx context.Context, connString string, opts Options) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 5 * time.Second
	}
	return &DB{Queries: Queries{q: pool}, Pool: pool, opts: opts}, nil
}

// RunMigrations runs all embedded SQL migrations.
func (d *DB) RunMigrations(connString string) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, connString)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Close closes the connection pool.
func (d *DB) Close() {
	d.Pool.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

// WithTx runs fn in a transaction with a bounded lock wait. Transient
// failures (lock timeouts, deadlocks, serialization failures, dropped
// connections) roll back and rerun fn with exponential backoff; when retries
// run out the error wraps models.ErrStoreUnavailable. Any other error from
// fn rolls back and is returned unchanged.
func (d *DB) WithTx(ctx context.Context, fn func(moderation.Repo) error) error {
	var lastErr error

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(50*time.Millisecond),
		backoff.WithMaxInterval(time.Second),
		backoff.WithMaxElapsedTime(10*time.Second),
	), d.opts.MaxRetries)

	err := backoff.Retry(func() error {
		err := d.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsRetryableError(err) {
			return backoff.Permanent(err)
		}
		lastErr = err
		slog.Warn("retrying transaction after transient store error", "error", err)
		return err
	}, backoff.WithContext(b, ctx))

	if err != nil && lastErr != nil && IsRetryableError(err) {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, lastErr)
	}
	return err
}

func (d *DB) runTx(ctx context.Context, fn func(moderation.Repo) error) error {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`,
		fmt.Sprintf("%dms", d.opts.LockTimeout.Milliseconds())); err != nil {
		return err
	}

	if err := fn(&Tx{Queries: Queries{q: tx}, tx: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
