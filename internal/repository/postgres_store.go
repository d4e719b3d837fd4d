package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	pool *pgxpool.Pool
	db   DBTX
}

// NewPostgresStore builds a Store over a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool, db: pool}
}

func (s *postgresStore) Categories() CategoryRepository { return NewCategoryRepository(s.db) }

func (s *postgresStore) Tickets() TicketRepository { return NewTicketRepository(s.db) }

func (s *postgresStore) Comments() CommentRepository { return NewCommentRepository(s.db) }

func (s *postgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&postgresStore{db: tx})
	})
}

func (s *postgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}
