package repository

import (
	"context"

	"github.com/spec-kit/dorm-maintenance/internal/domain"
)

// CommentRepository manages the append-only comment thread of tickets.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Comment, error)
	ListByTickets(ctx context.Context, ticketIDs []int64) (map[int64][]domain.Comment, error)
}

type commentRepository struct {
	db DBTX
}

// NewCommentRepository builds repository.
func NewCommentRepository(db DBTX) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (ticket_id, message, author_role, created_at)
        VALUES ($1,$2,$3::author_role,$4)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		comment.TicketID,
		comment.Message,
		string(comment.AuthorRole),
		comment.CreatedAt,
	).Scan(&comment.ID)
	return mapPgError(err)
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	grouped, err := r.ListByTickets(ctx, []int64{ticketID})
	if err != nil {
		return nil, err
	}
	if comments, ok := grouped[ticketID]; ok {
		return comments, nil
	}
	return []domain.Comment{}, nil
}

func (r *commentRepository) ListByTickets(ctx context.Context, ticketIDs []int64) (map[int64][]domain.Comment, error) {
	result := make(map[int64][]domain.Comment, len(ticketIDs))
	if len(ticketIDs) == 0 {
		return result, nil
	}
	const query = `
        SELECT id, ticket_id, message, author_role::text, created_at
        FROM comments WHERE ticket_id = ANY($1) ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			comment domain.Comment
			role    string
		)
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.Message,
			&role,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		comment.AuthorRole = domain.Role(role)
		result[comment.TicketID] = append(result[comment.TicketID], comment)
	}
	return result, rows.Err()
}
