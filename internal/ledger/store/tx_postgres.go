package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"shebuilds/internal/ledger/store/credential"
	"shebuilds/internal/ledger/store/role"
	dErrors "shebuilds/pkg/domain-errors"
	outboxpg "shebuilds/pkg/platform/outbox/store/postgres"
)

// ledgerLockKey identifies the transaction-scoped advisory lock every
// mutation holds.
const ledgerLockKey int64 = 0x5342534e4654

// PostgresRunner runs each mutation in its own transaction holding the
// ledger advisory lock. The advisory lock is released at commit, so mutations
// from this process also hold mu until their commit hooks have run.
type PostgresRunner struct {
	db      *sql.DB
	timeout time.Duration
	mu      sync.Mutex
}

type PostgresOption func(*PostgresRunner)

// WithTxTimeout bounds transactions whose context carries no deadline.
// Zero keeps the default.
func WithTxTimeout(d time.Duration) PostgresOption {
	return func(r *PostgresRunner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewPostgresRunner(db *sql.DB, opts ...PostgresOption) *PostgresRunner {
	r := &PostgresRunner{db: db, timeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *PostgresRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.run(ctx, &sql.TxOptions{}, true, &CommitHooks{}, fn)
}

func (r *PostgresRunner) View(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	return r.run(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, false, nil, fn)
}

func (r *PostgresRunner) run(ctx context.Context, opts *sql.TxOptions, lock bool, hooks *CommitHooks, fn func(ctx context.Context, s Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout())
		defer cancel()
	}

	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is no-op
	}()

	if lock {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, ledgerLockKey); err != nil {
			return fmt.Errorf("acquire ledger lock: %w", err)
		}
	}

	if err := fn(ctx, Stores{
		Roles:       role.NewPostgresTx(tx),
		Credentials: credential.NewPostgresTx(tx),
		Outbox:      outboxpg.NewTx(tx),
		Hooks:       hooks,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	if hooks != nil {
		hooks.Run()
	}
	return nil
}

// Timeout is the bound applied to transactions without a deadline.
func (r *PostgresRunner) Timeout() time.Duration {
	if r.timeout == 0 {
		return defaultTxTimeout
	}
	return r.timeout
}
