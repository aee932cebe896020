package repositories

import (
	"context"
	"database/sql"
	"errors"
)

// ErrDuplicate is returned when an insert hits a UNIQUE constraint (slug,
// email).
var ErrDuplicate = errors.New("duplicate record")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type scanner interface {
	Scan(dest ...interface{}) error
}
