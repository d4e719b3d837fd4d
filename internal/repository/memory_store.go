package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spec-kit/dorm-maintenance/internal/domain"
)

type memoryData struct {
	categories   map[int64]domain.Category
	tickets      map[int64]domain.Ticket
	comments     map[int64]domain.Comment
	nextCategory int64
	nextTicket   int64
	nextComment  int64
}

func (d *memoryData) clone() *memoryData {
	out := &memoryData{
		categories:   make(map[int64]domain.Category, len(d.categories)),
		tickets:      make(map[int64]domain.Ticket, len(d.tickets)),
		comments:     make(map[int64]domain.Comment, len(d.comments)),
		nextCategory: d.nextCategory,
		nextTicket:   d.nextTicket,
		nextComment:  d.nextComment,
	}
	for k, v := range d.categories {
		out.categories[k] = v
	}
	for k, v := range d.tickets {
		out.tickets[k] = v
	}
	for k, v := range d.comments {
		out.comments[k] = v
	}
	return out
}

// memoryStore keeps every record in process. A single mutex serializes transactions, and a
// failed transaction restores the snapshot taken when it began.
type memoryStore struct {
	mu   *sync.Mutex
	data *memoryData
	inTx bool
}

// NewMemoryStore returns an empty in-process Store.
func NewMemoryStore() Store {
	return &memoryStore{
		mu: &sync.Mutex{},
		data: &memoryData{
			categories: map[int64]domain.Category{},
			tickets:    map[int64]domain.Ticket{},
			comments:   map[int64]domain.Comment{},
		},
	}
}

func (s *memoryStore) Categories() CategoryRepository { return memoryCategories{s} }

func (s *memoryStore) Tickets() TicketRepository { return memoryTickets{s} }

func (s *memoryStore) Comments() CommentRepository { return memoryComments{s} }

func (s *memoryStore) Ping(context.Context) error { return nil }

func (s *memoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &memoryStore{mu: s.mu, data: s.data, inTx: true}
	if err := fn(tx); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

// do runs fn under the store lock unless the caller already holds it through WithinTx.
func (s *memoryStore) do(fn func(d *memoryData) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.data)
}

type memoryCategories struct{ s *memoryStore }

func (r memoryCategories) Create(_ context.Context, category *domain.Category) error {
	return r.s.do(func(d *memoryData) error {
		for _, existing := range d.categories {
			if existing.Name == category.Name {
				return ErrDuplicate
			}
		}
		d.nextCategory++
		category.ID = d.nextCategory
		d.categories[category.ID] = copyCategory(*category)
		return nil
	})
}

func (r memoryCategories) Update(_ context.Context, category *domain.Category) error {
	return r.s.do(func(d *memoryData) error {
		if _, ok := d.categories[category.ID]; !ok {
			return ErrNotFound
		}
		for id, existing := range d.categories {
			if id != category.ID && existing.Name == category.Name {
				return ErrDuplicate
			}
		}
		d.categories[category.ID] = copyCategory(*category)
		return nil
	})
}

func (r memoryCategories) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	var out *domain.Category
	err := r.s.do(func(d *memoryData) error {
		category, ok := d.categories[id]
		if !ok {
			return ErrNotFound
		}
		c := copyCategory(category)
		out = &c
		return nil
	})
	return out, err
}

func (r memoryCategories) GetByName(_ context.Context, name string) (*domain.Category, error) {
	var out *domain.Category
	err := r.s.do(func(d *memoryData) error {
		for _, category := range d.categories {
			if category.Name == name {
				c := copyCategory(category)
				out = &c
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r memoryCategories) List(_ context.Context, includeInactive bool) ([]domain.Category, error) {
	result := []domain.Category{}
	err := r.s.do(func(d *memoryData) error {
		for _, category := range d.categories {
			if !includeInactive && !category.IsActive {
				continue
			}
			result = append(result, copyCategory(category))
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, err
}

func copyCategory(c domain.Category) domain.Category {
	if c.Description != nil {
		desc := *c.Description
		c.Description = &desc
	}
	return c
}

type memoryTickets struct{ s *memoryStore }

func (r memoryTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.s.do(func(d *memoryData) error {
		d.nextTicket++
		ticket.ID = d.nextTicket
		stored := *ticket
		stored.Comments = nil
		d.tickets[ticket.ID] = stored
		return nil
	})
}

func (r memoryTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.s.do(func(d *memoryData) error {
		if _, ok := d.tickets[ticket.ID]; !ok {
			return ErrNotFound
		}
		stored := *ticket
		stored.Comments = nil
		d.tickets[ticket.ID] = stored
		return nil
	})
}

func (r memoryTickets) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.s.do(func(d *memoryData) error {
		ticket, ok := d.tickets[id]
		if !ok {
			return ErrNotFound
		}
		out = &ticket
		return nil
	})
	return out, err
}

// GetForUpdate needs no row lock here: WithinTx already holds the store mutex.
func (r memoryTickets) GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r memoryTickets) Delete(_ context.Context, id int64) error {
	return r.s.do(func(d *memoryData) error {
		if _, ok := d.tickets[id]; !ok {
			return ErrNotFound
		}
		delete(d.tickets, id)
		for commentID, comment := range d.comments {
			if comment.TicketID == id {
				delete(d.comments, commentID)
			}
		}
		return nil
	})
}

func (r memoryTickets) ListWithFilter(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = SortByCreatedAt
	}
	if !sortBy.Sortable() {
		return nil, fmt.Errorf("unsortable field %q", sortBy)
	}

	matched := []domain.Ticket{}
	_ = r.s.do(func(d *memoryData) error {
		for _, ticket := range d.tickets {
			if filter.Status != nil && ticket.Status != *filter.Status {
				continue
			}
			if filter.Priority != nil && ticket.Priority != *filter.Priority {
				continue
			}
			if filter.CategoryID != nil && ticket.CategoryID != *filter.CategoryID {
				continue
			}
			if filter.Room != nil && ticket.Room != *filter.Room {
				continue
			}
			matched = append(matched, ticket)
		}
		return nil
	})

	sort.Slice(matched, func(i, j int) bool {
		c := compareTickets(matched[i], matched[j], sortBy)
		if c == 0 {
			c = compareInt64(matched[i].ID, matched[j].ID)
		}
		if filter.Descending {
			return c > 0
		}
		return c < 0
	})

	if filter.Offset >= len(matched) {
		return []domain.Ticket{}, nil
	}
	end := len(matched)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], nil
}

func compareTickets(a, b domain.Ticket, field TicketSortField) int {
	switch field {
	case SortByID:
		return compareInt64(a.ID, b.ID)
	case SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case SortByPriority:
		return compareInt64(int64(a.Priority.Rank()), int64(b.Priority.Rank()))
	case SortByStatus:
		return compareInt64(int64(a.Status.Rank()), int64(b.Status.Rank()))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

type memoryComments struct{ s *memoryStore }

func (r memoryComments) Create(_ context.Context, comment *domain.Comment) error {
	return r.s.do(func(d *memoryData) error {
		if _, ok := d.tickets[comment.TicketID]; !ok {
			return ErrNotFound
		}
		d.nextComment++
		comment.ID = d.nextComment
		d.comments[comment.ID] = *comment
		return nil
	})
}

func (r memoryComments) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	grouped, err := r.ListByTickets(ctx, []int64{ticketID})
	if err != nil {
		return nil, err
	}
	if comments, ok := grouped[ticketID]; ok {
		return comments, nil
	}
	return []domain.Comment{}, nil
}

func (r memoryComments) ListByTickets(_ context.Context, ticketIDs []int64) (map[int64][]domain.Comment, error) {
	wanted := make(map[int64]struct{}, len(ticketIDs))
	for _, id := range ticketIDs {
		wanted[id] = struct{}{}
	}
	result := make(map[int64][]domain.Comment, len(ticketIDs))
	_ = r.s.do(func(d *memoryData) error {
		for _, comment := range d.comments {
			if _, ok := wanted[comment.TicketID]; ok {
				result[comment.TicketID] = append(result[comment.TicketID], comment)
			}
		}
		return nil
	})
	for id := range result {
		comments := result[id]
		sort.Slice(comments, func(i, j int) bool {
			if c := comments[i].CreatedAt.Compare(comments[j].CreatedAt); c != 0 {
				return c < 0
			}
			return comments[i].ID < comments[j].ID
		})
	}
	return result, nil
}
