package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// Store groups the repositories that share one unit of work.
type Store interface {
	Categories() CategoryRepository
	Tickets() TicketRepository
	Comments() CommentRepository
	// WithinTx runs fn against a transactional view of the store. The transaction commits
	// when fn returns nil and rolls back otherwise. Nested calls reuse the outer transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
