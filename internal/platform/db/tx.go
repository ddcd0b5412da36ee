package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

// Beginner starts transactions. *pgxpool.Pool implements it.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Runner opens one RepeatableRead transaction per unit of work and bounds
// how long any statement inside it may wait on a row lock.
type Runner struct {
	db          Beginner
	lockTimeout time.Duration
}

// NewRunner builds a Runner. A zero lockTimeout keeps the server default.
func NewRunner(db Beginner, lockTimeout time.Duration) *Runner {
	return &Runner{db: db, lockTimeout: lockTimeout}
}

// WithTx executes fn within a transaction. Any error from fn rolls the
// transaction back; driver errors are classified into the shared taxonomy.
func (r *Runner) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return storageFailure(fmt.Errorf("platform/db: begin tx: %w", err))
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if r.lockTimeout > 0 {
		if _, err := tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", lockTimeoutSetting(r.lockTimeout)); err != nil {
			return storageFailure(fmt.Errorf("platform/db: set lock timeout: %w", err))
		}
	}

	if err := fn(tx); err != nil {
		return Classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storageFailure(fmt.Errorf("platform/db: commit tx: %w", err))
	}

	return nil
}

// WithTx executes a function within a transaction using the RepeatableRead isolation level.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return NewRunner(pool, 0).WithTx(ctx, fn)
}

// storageFailure classifies err and falls back to shared.ErrStorage for
// failures outside fn, where the unit of work itself could not proceed.
func storageFailure(err error) error {
	classified := Classify(err)
	if errors.Is(classified, shared.ErrBusy) || errors.Is(classified, shared.ErrStorage) {
		return classified
	}
	return fmt.Errorf("%w: %w", shared.ErrStorage, err)
}

func lockTimeoutSetting(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
