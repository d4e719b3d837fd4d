package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/dorm-maintenance/internal/domain"
	"github.com/spec-kit/dorm-maintenance/internal/events"
	"github.com/spec-kit/dorm-maintenance/internal/repository"
	apperrors "github.com/spec-kit/dorm-maintenance/pkg/util/errorutil"
	"github.com/spec-kit/dorm-maintenance/pkg/util/optional"
)

// List defaults and bounds.
const (
	DefaultListLimit = 10
	MaxListLimit     = 100
	DefaultSortBy    = string(repository.SortByCreatedAt)
	SortOrderAsc     = "asc"
	SortOrderDesc    = "desc"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	store      repository.Store
	comments   *CommentService
	dispatcher events.Dispatcher
	now        Clock
}

// TicketDependencies bundles collaborators for the ticket service. Dispatcher is optional.
type TicketDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Clock      Clock
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Room        string
	Priority    domain.TicketPriority
	CategoryID  int64
}

// TicketUpdateInput carries a partial update. Absent fields are left untouched.
type TicketUpdateInput struct {
	Title       optional.Value[string]
	Description optional.Value[string]
	Room        optional.Value[string]
	Priority    optional.Value[domain.TicketPriority]
	CategoryID  optional.Value[int64]
}

// TicketListQuery describes list filters, sorting and pagination as supplied by the caller.
type TicketListQuery struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	CategoryID *int64
	Room       *string
	SortBy     string
	SortOrder  string
	Skip       int
	Limit      int
}

// NewTicketListQuery returns a query carrying the default sort and page.
func NewTicketListQuery() TicketListQuery {
	return TicketListQuery{
		SortBy:    DefaultSortBy,
		SortOrder: SortOrderDesc,
		Limit:     DefaultListLimit,
	}
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := clockOrDefault(deps.Clock)
	return &TicketService{
		store:      deps.Store,
		comments:   newCommentService(deps.Store, deps.Dispatcher, now),
		dispatcher: deps.Dispatcher,
		now:        now,
	}
}

// Create opens a ticket against an active category.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("Request validation failed",
			apperrors.FieldError{Field: "priority", Message: "priority must be one of: low, medium, high, urgent"})
	}

	now := s.now()
	ticket := &domain.Ticket{
		Title:       input.Title,
		Description: input.Description,
		Room:        input.Room,
		Priority:    input.Priority,
		Status:      domain.TicketStatusOpen,
		CategoryID:  input.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Comments:    []domain.Comment{},
	}

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := ensureActiveCategory(ctx, tx, input.CategoryID); err != nil {
			return err
		}
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return fmt.Errorf("create ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTicketCreated,
		EntityID:  ticket.ID,
		Timestamp: now,
		Payload: events.TicketCreatedPayload{
			CategoryID: ticket.CategoryID,
			Room:       ticket.Room,
			Priority:   ticket.Priority,
			Title:      ticket.Title,
		},
	})
	return ticket, nil
}

// List returns tickets matching every supplied filter, each with its comments.
func (s *TicketService) List(ctx context.Context, query TicketListQuery) ([]domain.Ticket, error) {
	filter, err := query.toFilter()
	if err != nil {
		return nil, err
	}

	tickets, err := s.store.Tickets().ListWithFilter(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	if len(tickets) == 0 {
		return []domain.Ticket{}, nil
	}

	ids := make([]int64, 0, len(tickets))
	for _, ticket := range tickets {
		ids = append(ids, ticket.ID)
	}
	grouped, err := s.store.Comments().ListByTickets(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list ticket comments: %w", err)
	}
	for i := range tickets {
		if comments, ok := grouped[tickets[i].ID]; ok {
			tickets[i].Comments = comments
		} else {
			tickets[i].Comments = []domain.Comment{}
		}
	}
	return tickets, nil
}

// Get returns one ticket with its comments in creation order.
func (s *TicketService) Get(ctx context.Context, id int64) (*domain.Ticket, error) {
	return loadTicket(ctx, s.store, id)
}

// Update applies the supplied fields subject to the role's edit permission, and always bumps updated_at.
func (s *TicketService) Update(ctx context.Context, id int64, input TicketUpdateInput, role domain.Role) (*domain.Ticket, error) {
	if err := roleError(role); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	var updated *domain.Ticket
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "Ticket")
		}
		if !domain.CanEditFields(role, ticket.Status) {
			return apperrors.NewForbidden("Student can edit ticket only when status is open")
		}
		if input.CategoryID.Present() {
			if err := ensureActiveCategory(ctx, tx, input.CategoryID.Value); err != nil {
				return err
			}
			ticket.CategoryID = input.CategoryID.Value
		}
		if input.Title.Present() {
			ticket.Title = input.Title.Value
		}
		if input.Description.Present() {
			ticket.Description = input.Description.Value
		}
		if input.Room.Present() {
			ticket.Room = input.Room.Value
		}
		if input.Priority.Present() {
			ticket.Priority = input.Priority.Value
		}
		ticket.UpdatedAt = s.now()
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return notFoundOr(err, "Ticket")
		}
		updated, err = loadTicket(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTicketUpdated,
		EntityID:  updated.ID,
		ActorRole: role,
		Timestamp: updated.UpdatedAt,
		Payload:   events.TicketUpdatedPayload{Fields: input.fields()},
	})
	return updated, nil
}

// Delete removes a ticket and its comments.
func (s *TicketService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Tickets().Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("Ticket")
		}
		return fmt.Errorf("delete ticket: %w", err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTicketDeleted,
		EntityID:  id,
		Timestamp: s.now(),
	})
	return nil
}

// AddComment appends a comment authored by role.
func (s *TicketService) AddComment(ctx context.Context, ticketID int64, message string, role domain.Role) (*domain.Comment, error) {
	return s.comments.Add(ctx, ticketID, message, role)
}

// UpdateStatus moves a ticket along the lifecycle. Only technicians may call it, and the role is
// checked before the ticket is looked up so unauthorized callers cannot discover ids.
func (s *TicketService) UpdateStatus(ctx context.Context, id int64, target domain.TicketStatus, role domain.Role) (*domain.Ticket, error) {
	if err := roleError(role); err != nil {
		return nil, err
	}
	if !domain.CanChangeStatus(role) {
		return nil, apperrors.NewForbidden("Only technician can update status")
	}
	if !target.Valid() {
		return nil, apperrors.NewValidationError("Request validation failed",
			apperrors.FieldError{Field: "status", Message: "status must be one of: open, in_progress, done, rejected"})
	}

	var (
		updated  *domain.Ticket
		previous domain.TicketStatus
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "Ticket")
		}
		if !domain.CanTransition(ticket.Status, target) {
			return apperrors.NewInvalidTransition(string(ticket.Status), string(target))
		}
		previous = ticket.Status
		ticket.Status = target
		ticket.UpdatedAt = s.now()
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return notFoundOr(err, "Ticket")
		}
		updated, err = loadTicket(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTicketStatusChanged,
		EntityID:  updated.ID,
		ActorRole: role,
		Timestamp: updated.UpdatedAt,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: previous,
			NewStatus: target,
		},
	})
	return updated, nil
}

func loadTicket(ctx context.Context, store repository.Store, id int64) (*domain.Ticket, error) {
	ticket, err := store.Tickets().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Ticket")
	}
	comments, err := store.Comments().ListByTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list ticket comments: %w", err)
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	ticket.Comments = comments
	return ticket, nil
}

// ensureActiveCategory reads through the transaction, never the cache.
func ensureActiveCategory(ctx context.Context, tx repository.Store, categoryID int64) error {
	category, err := tx.Categories().GetByID(ctx, categoryID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewInvalidCategory()
	}
	if err != nil {
		return fmt.Errorf("lookup category: %w", err)
	}
	if !category.IsActive {
		return apperrors.NewInvalidCategory()
	}
	return nil
}

func (in TicketUpdateInput) validate() error {
	var details []apperrors.FieldError
	nullable := []struct {
		field string
		null  bool
	}{
		{"title", in.Title.Set && in.Title.Null},
		{"description", in.Description.Set && in.Description.Null},
		{"room", in.Room.Set && in.Room.Null},
		{"priority", in.Priority.Set && in.Priority.Null},
		{"category_id", in.CategoryID.Set && in.CategoryID.Null},
	}
	for _, f := range nullable {
		if f.null {
			details = append(details, apperrors.FieldError{Field: f.field, Message: f.field + " may not be null"})
		}
	}
	if in.Priority.Present() && !in.Priority.Value.Valid() {
		details = append(details, apperrors.FieldError{Field: "priority", Message: "priority must be one of: low, medium, high, urgent"})
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("Request validation failed", details...)
	}
	return nil
}

func (in TicketUpdateInput) fields() []string {
	fields := []string{}
	if in.Title.Set {
		fields = append(fields, "title")
	}
	if in.Description.Set {
		fields = append(fields, "description")
	}
	if in.Room.Set {
		fields = append(fields, "room")
	}
	if in.Priority.Set {
		fields = append(fields, "priority")
	}
	if in.CategoryID.Set {
		fields = append(fields, "category_id")
	}
	return fields
}

// toFilter validates paging first, then the sort key, mirroring how the HTTP layer reports them.
func (q TicketListQuery) toFilter() (repository.TicketFilter, error) {
	var details []apperrors.FieldError
	if q.Skip < 0 {
		details = append(details, apperrors.FieldError{Field: "skip", Message: "skip must be greater than or equal to 0"})
	}
	if q.Limit < 1 || q.Limit > MaxListLimit {
		details = append(details, apperrors.FieldError{Field: "limit", Message: fmt.Sprintf("limit must be between 1 and %d", MaxListLimit)})
	}
	order := strings.ToLower(q.SortOrder)
	if order != SortOrderAsc && order != SortOrderDesc {
		details = append(details, apperrors.FieldError{Field: "sort_order", Message: "sort_order must be one of: asc, desc"})
	}
	if q.Status != nil && !q.Status.Valid() {
		details = append(details, apperrors.FieldError{Field: "status", Message: "status must be one of: open, in_progress, done, rejected"})
	}
	if q.Priority != nil && !q.Priority.Valid() {
		details = append(details, apperrors.FieldError{Field: "priority", Message: "priority must be one of: low, medium, high, urgent"})
	}
	if len(details) > 0 {
		return repository.TicketFilter{}, apperrors.NewValidationError("Request validation failed", details...)
	}

	// An empty key is rejected like any other unknown one; NewTicketListQuery carries the defaults.
	sortBy := repository.TicketSortField(q.SortBy)
	if !sortBy.Sortable() {
		return repository.TicketFilter{}, apperrors.NewValidationError("Invalid sort field",
			apperrors.FieldError{Field: "sort_by", Message: "Must be one of: " + sortFieldList()})
	}

	return repository.TicketFilter{
		Status:     q.Status,
		Priority:   q.Priority,
		CategoryID: q.CategoryID,
		Room:       q.Room,
		SortBy:     sortBy,
		Descending: order == SortOrderDesc,
		Limit:      q.Limit,
		Offset:     q.Skip,
	}, nil
}

func sortFieldList() string {
	names := make([]string, 0, len(repository.SortFields()))
	for _, f := range repository.SortFields() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
