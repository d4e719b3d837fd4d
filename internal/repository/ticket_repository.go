package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/dorm-maintenance/internal/domain"
)

// TicketSortField names a sortable ticket column.
type TicketSortField string

const (
	SortByID        TicketSortField = "id"
	SortByCreatedAt TicketSortField = "created_at"
	SortByUpdatedAt TicketSortField = "updated_at"
	SortByPriority  TicketSortField = "priority"
	SortByStatus    TicketSortField = "status"
)

// sortColumns doubles as the allow-list; ORDER BY never interpolates caller input.
// Columns are qualified so enum columns sort by declaration order, not by the ::text output column.
var sortColumns = map[TicketSortField]string{
	SortByID:        "tickets.id",
	SortByCreatedAt: "tickets.created_at",
	SortByUpdatedAt: "tickets.updated_at",
	SortByPriority:  "tickets.priority",
	SortByStatus:    "tickets.status",
}

// SortFields returns the sortable fields in a stable order.
func SortFields() []TicketSortField {
	return []TicketSortField{SortByID, SortByCreatedAt, SortByUpdatedAt, SortByPriority, SortByStatus}
}

// Sortable reports whether field is in the allow-list.
func (f TicketSortField) Sortable() bool {
	_, ok := sortColumns[f]
	return ok
}

// TicketFilter captures list parameters. Nil filters are ignored; set filters are AND-combined.
type TicketFilter struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	CategoryID *int64
	Room       *string
	SortBy     TicketSortField
	Descending bool
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// GetForUpdate reads the ticket and locks its row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error)
	Delete(ctx context.Context, id int64) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, title, description, room, priority::text, status::text, category_id, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, room, priority, status, category_id, created_at, updated_at)
        VALUES ($1,$2,$3,$4::ticket_priority,$5::ticket_status,$6,$7,$8)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Room,
		string(ticket.Priority),
		string(ticket.Status),
		ticket.CategoryID,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID)
	return mapPgError(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, room=$3, priority=$4::ticket_priority,
            status=$5::ticket_status, category_id=$6, updated_at=$7
        WHERE id=$8`
	cmd, err := r.db.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Room,
		string(ticket.Priority),
		string(ticket.Status),
		ticket.CategoryID,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const (
	selectTicketSQL          = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	selectTicketForUpdateSQL = selectTicketSQL + ` FOR UPDATE`
)

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.getOne(ctx, selectTicketSQL, id)
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.getOne(ctx, selectTicketForUpdateSQL, id)
}

func (r *ticketRepository) getOne(ctx context.Context, query string, id int64) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return ticket, nil
}

// Delete removes the ticket; comments go with it through ON DELETE CASCADE.
func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query, args, err := buildTicketListQuery(filter)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func buildTicketListQuery(filter TicketFilter) (string, []any, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clauses = append(clauses, fmt.Sprintf("status=$%d::ticket_status", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, string(*filter.Priority))
		clauses = append(clauses, fmt.Sprintf("priority=$%d::ticket_priority", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if filter.Room != nil {
		args = append(args, *filter.Room)
		clauses = append(clauses, fmt.Sprintf("room=$%d", len(args)))
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = SortByCreatedAt
	}
	column, ok := sortColumns[sortBy]
	if !ok {
		return "", nil, fmt.Errorf("unsortable field %q", sortBy)
	}
	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY %s %s, tickets.id %s LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), column, direction, direction, filter.Limit, filter.Offset)
	return query, args, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		priority string
		status   string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Room,
		&priority,
		&status,
		&ticket.CategoryID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ticket.Priority = domain.TicketPriority(priority)
	ticket.Status = domain.TicketStatus(status)
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
