package db

import (
	"context"
	"database/sql"
)

// Queryer is satisfied by *sql.DB and *sql.Tx so repository methods can run
// inside or outside a transaction.
type Queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// WithinTx runs fn inside a transaction, rolling back on error or panic.
func WithinTx(conn *sql.DB, fn func(tx *sql.Tx) error) error {
	return WithinTxContext(context.Background(), conn, fn)
}

// WithinTxContext is WithinTx under a caller context; a cancelled context
// refuses to begin, so no writes start after the caller has given up.
func WithinTxContext(ctx context.Context, conn *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// NullIfEmpty helps store optional strings without wiping existing data.
func NullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
