package repositories

import "context"

// TxFn is a unit of work run atomically. The localstore engine's only
// caller wraps an entire PUT or DELETE ancestor chain (the fabricated or
// collapsed parent folders all the way to the root) in one TxFn, so a crash
// partway through never leaves an orphaned ancestor row.
type TxFn func(ctx context.Context) error

// TransactionManager runs a TxFn atomically against Postgres.
type TransactionManager interface {
	// ExecTx executes fn inside a transaction, committing on nil error and
	// rolling back otherwise. If ctx already carries an active transaction,
	// implementations are expected to run fn inside it rather than nesting
	// a second one, since ancestor chains re-enter ExecTx recursively.
	ExecTx(ctx context.Context, fn TxFn) error
}
