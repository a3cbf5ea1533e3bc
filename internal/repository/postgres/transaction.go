package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"remotestorage/internal/domain/repositories"
)

// TransactionManager runs a function inside a pgx transaction, exposed
// through the context so repositories using GetExecutor automatically
// participate in it.
type TransactionManager struct {
	pool *pgxpool.Pool
}

// NewTransactionManager wraps pool in a TransactionManager.
func NewTransactionManager(pool *pgxpool.Pool) repositories.TransactionManager {
	return &TransactionManager{pool: pool}
}

// ExecTx begins a transaction, runs fn with it injected into the context,
// and commits on success or rolls back otherwise. If ctx already carries an
// active transaction, fn runs inside it directly instead of nesting a new
// one on a second connection.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if GetTx(ctx) != nil {
		return fn(ctx)
	}

	tx, err := tm.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Warn("transaction rollback failed", "error", err)
		}
	}()

	if err := fn(SetTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
