// Package postgres holds the pgx connection-pool setup shared by the
// local-storage engine and by anything else in this server that needs a
// direct SQL connection.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateConnectionPool creates a pgx connection pool with automatic
// PgBouncer compatibility.
//
// PgBouncer in transaction pooling mode (commonly exposed on port 6543)
// does not support prepared statements, so connecting through it with the
// default QueryExecModeCacheStatement produces "prepared statement already
// exists" errors under load. When port 6543 is detected and the caller has
// not already overridden the mode via ?default_query_exec_mode=..., this
// switches to QueryExecModeCacheDescribe, which still uses the extended
// protocol but caches statement descriptions rather than prepared
// statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// DBTX is implemented by both *pgxpool.Pool and pgx.Tx, letting the
// localstore engine's row helpers run queries without caring whether an
// ancestor-chain transaction is active.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, arguments ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, arguments ...interface{}) pgx.Row
}

type txContextKey string

const txKey txContextKey = "pgx_tx"

// SetTx stores the transaction an ancestor PUT/DELETE chain is running
// inside, so nested engine calls made through GetExecutor join it instead
// of running outside any transaction.
func SetTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// GetTx retrieves the active transaction from ctx, or nil if none is set.
func GetTx(ctx context.Context) pgx.Tx {
	tx, ok := ctx.Value(txKey).(pgx.Tx)
	if !ok {
		return nil
	}
	return tx
}

// GetExecutor returns the transaction in ctx if one is active, otherwise
// pool, letting callers run queries without caring which applies.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) DBTX {
	if tx := GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
