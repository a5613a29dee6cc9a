// Package repository holds the persistence layer. Each repository executes
// its own SQL against a pgx querier and maps pgx.ErrNoRows to db.ErrNotFound
// so callers never import pgx directly.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the query surface shared by *pgxpool.Pool and pgx.Tx
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// uniqueViolation is the Postgres error code for unique constraint violations
const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation.
// The materializer relies on this to resolve the benign check-then-insert
// race between concurrent sync runs.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
