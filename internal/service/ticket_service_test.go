package service

import (
	"context"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/dorm-maintenance/internal/domain"
	"github.com/spec-kit/dorm-maintenance/internal/events"
	"github.com/spec-kit/dorm-maintenance/internal/repository"
	apperrors "github.com/spec-kit/dorm-maintenance/pkg/util/errorutil"
	"github.com/spec-kit/dorm-maintenance/pkg/util/optional"
)

func TestTicketService_CreateRequiresActiveCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.category(t, "Plumbing")

	ticket := f.ticket(t, c.ID, domain.TicketPriorityHigh)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, ticket.CreatedAt, ticket.UpdatedAt)
	assert.NotNil(t, ticket.Comments)
	assert.Empty(t, ticket.Comments)

	input := TicketCreateInput{Title: "Broken lamp", Description: "Desk lamp sparks", Room: "B-0001", Priority: domain.TicketPriorityLow, CategoryID: 999}
	_, err := f.tickets.Create(ctx, input)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCategory)

	require.NoError(t, f.categories.Deactivate(ctx, c.ID))
	input.CategoryID = c.ID
	_, err = f.tickets.Create(ctx, input)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCategory)

	input.Priority = "critical"
	_, err = f.tickets.Create(ctx, input)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestTicketService_StatusLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.category(t, "Plumbing")
	ticket := f.ticket(t, c.ID, domain.TicketPriorityMedium)

	_, err := f.tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusInProgress, domain.RoleStudent)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	moved, err := f.tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusInProgress, domain.RoleTechnician)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, moved.Status)
	assert.True(t, moved.UpdatedAt.After(ticket.UpdatedAt))

	_, err = f.tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusOpen, domain.RoleTechnician)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	done, err := f.tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusDone, domain.RoleTechnician)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusDone, done.Status)

	for _, target := range domain.TicketStatuses {
		_, err = f.tickets.UpdateStatus(ctx, ticket.ID, target, domain.RoleTechnician)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "done -> %s", target)
	}

	got, err := f.tickets.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusDone, got.Status)

	e := f.events.last()
	assert.Equal(t, events.EventTicketStatusChanged, e.Type)
	assert.Equal(t, events.TicketStatusChangedPayload{OldStatus: domain.TicketStatusInProgress, NewStatus: domain.TicketStatusDone}, e.Payload)
}

// lockRecordingStore notes which ticket ids were read with a row lock inside a transaction.
type lockRecordingStore struct {
	repository.Store
	inTx   bool
	mu     *sync.Mutex
	locked *[]int64
}

func (s *lockRecordingStore) Tickets() repository.TicketRepository {
	return lockRecordingTickets{TicketRepository: s.Store.Tickets(), store: s}
}

func (s *lockRecordingStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(&lockRecordingStore{Store: tx, inTx: true, mu: s.mu, locked: s.locked})
	})
}

type lockRecordingTickets struct {
	repository.TicketRepository
	store *lockRecordingStore
}

func (r lockRecordingTickets) GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	if r.store.inTx {
		r.store.mu.Lock()
		*r.store.locked = append(*r.store.locked, id)
		r.store.mu.Unlock()
	}
	return r.TicketRepository.GetForUpdate(ctx, id)
}

func TestTicketService_WritesLockTheTicketRow(t *testing.T) {
	ctx := context.Background()
	var locked []int64
	store := &lockRecordingStore{Store: repository.NewMemoryStore(), mu: &sync.Mutex{}, locked: &locked}
	categories := NewCategoryService(CategoryDependencies{Store: store})
	tickets := NewTicketService(TicketDependencies{Store: store})

	c, err := categories.Create(ctx, CategoryCreateInput{Name: "Plumbing"})
	require.NoError(t, err)
	ticket, err := tickets.Create(ctx, TicketCreateInput{
		Title:       "Leaking shower",
		Description: "Water pools under the shower tray",
		Room:        "A-1207",
		Priority:    domain.TicketPriorityLow,
		CategoryID:  c.ID,
	})
	require.NoError(t, err)
	assert.Empty(t, locked)

	_, err = tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusInProgress, domain.RoleTechnician)
	require.NoError(t, err)
	_, err = tickets.Update(ctx, ticket.ID, TicketUpdateInput{Title: optional.Of("Leaking shower tray")}, domain.RoleTechnician)
	require.NoError(t, err)

	assert.Equal(t, []int64{ticket.ID, ticket.ID}, locked)
}

func TestTicketService_ConcurrentTransitionsNeverLeaveTerminalState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.category(t, "Electrical")

	for i := 0; i < 10; i++ {
		ticket := f.ticket(t, c.ID, domain.TicketPriorityHigh)
		var wg sync.WaitGroup
		for _, target := range []domain.TicketStatus{
			domain.TicketStatusInProgress,
			domain.TicketStatusRejected,
			domain.TicketStatusDone,
			domain.TicketStatusInProgress,
			domain.TicketStatusDone,
		} {
			wg.Add(1)
			go func(target domain.TicketStatus) {
				defer wg.Done()
				_, _ = f.tickets.UpdateStatus(ctx, ticket.ID, target, domain.RoleTechnician)
			}(target)
		}
		wg.Wait()
	}

	for _, e := range f.events.all() {
		payload, ok := e.Payload.(events.TicketStatusChangedPayload)
		if !ok {
			continue
		}
		assert.NotEmpty(t, domain.NextStatuses(payload.OldStatus), "ticket %d left %s", e.EntityID, payload.OldStatus)
		assert.True(t, domain.CanTransition(payload.OldStatus, payload.NewStatus))
	}
}

func TestTicketService_StatusRoleCheckedBeforeExistence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.tickets.UpdateStatus(ctx, 12345, domain.TicketStatusDone, domain.RoleStudent)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.tickets.UpdateStatus(ctx, 12345, domain.TicketStatusDone, domain.RoleTechnician)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTicketService_InvalidTransitionMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.ticket(t, f.category(t, "Doors").ID, domain.TicketPriorityLow)

	_, err := f.tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusDone, domain.RoleTechnician)
	require.Error(t, err)
	assert.Equal(t, "Cannot transition from open to done", err.Error())

	_, err = f.tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusOpen, domain.RoleTechnician)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestTicketService_UpdateEditPermission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.ticket(t, f.category(t, "Plumbing").ID, domain.TicketPriorityLow)

	updated, err := f.tickets.Update(ctx, ticket.ID, TicketUpdateInput{Title: optional.Of("Leaking shower head")}, domain.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "Leaking shower head", updated.Title)
	assert.Equal(t, ticket.Description, updated.Description)
	assert.True(t, updated.UpdatedAt.After(ticket.UpdatedAt))

	_, err = f.tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusInProgress, domain.RoleTechnician)
	require.NoError(t, err)

	_, err = f.tickets.Update(ctx, ticket.ID, TicketUpdateInput{Title: optional.Of("Changed again")}, domain.RoleStudent)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	byTech, err := f.tickets.Update(ctx, ticket.ID, TicketUpdateInput{Priority: optional.Of(domain.TicketPriorityUrgent)}, domain.RoleTechnician)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityUrgent, byTech.Priority)
	assert.Equal(t, "Leaking shower head", byTech.Title)

	_, err = f.tickets.Update(ctx, 999, TicketUpdateInput{}, domain.RoleTechnician)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTicketService_UpdateEmptyBodyBumpsTimestamp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.ticket(t, f.category(t, "Plumbing").ID, domain.TicketPriorityLow)

	updated, err := f.tickets.Update(ctx, ticket.ID, TicketUpdateInput{}, domain.RoleStudent)
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(ticket.UpdatedAt))
	assert.Equal(t, ticket.Title, updated.Title)
}

func TestTicketService_UpdateCategoryMustBeActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	active := f.category(t, "Plumbing")
	retired := f.category(t, "Retired")
	require.NoError(t, f.categories.Deactivate(ctx, retired.ID))
	ticket := f.ticket(t, active.ID, domain.TicketPriorityLow)

	_, err := f.tickets.Update(ctx, ticket.ID, TicketUpdateInput{CategoryID: optional.Of(retired.ID)}, domain.RoleStudent)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCategory)

	_, err = f.tickets.Update(ctx, ticket.ID, TicketUpdateInput{CategoryID: optional.Of(int64(404))}, domain.RoleStudent)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCategory)

	got, err := f.tickets.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.CategoryID)
	assert.Equal(t, ticket.UpdatedAt, got.UpdatedAt)
}

func TestTicketService_UpdateRejectsNulls(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.ticket(t, f.category(t, "Plumbing").ID, domain.TicketPriorityLow)

	_, err := f.tickets.Update(ctx, ticket.ID, TicketUpdateInput{Title: optional.Null[string]()}, domain.RoleStudent)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// body validation runs before the existence check
	_, err = f.tickets.Update(ctx, 999, TicketUpdateInput{Room: optional.Null[string]()}, domain.RoleStudent)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestTicketService_Comments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.ticket(t, f.category(t, "Plumbing").ID, domain.TicketPriorityLow)

	first, err := f.tickets.AddComment(ctx, ticket.ID, "Still leaking", domain.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, first.AuthorRole)

	_, err = f.tickets.AddComment(ctx, ticket.ID, "On my way", domain.RoleTechnician)
	require.NoError(t, err)

	got, err := f.tickets.Get(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "Still leaking", got.Comments[0].Message)
	assert.Equal(t, domain.RoleTechnician, got.Comments[1].AuthorRole)
	assert.Equal(t, ticket.UpdatedAt, got.UpdatedAt)

	_, err = f.tickets.AddComment(ctx, 999, "hello", domain.RoleStudent)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	e := f.events.last()
	assert.Equal(t, events.EventTicketCommentAdded, e.Type)
	payload, ok := e.Payload.(events.TicketCommentAddedPayload)
	require.True(t, ok)
	assert.Equal(t, "On my way", payload.BodyPreview)
}

func TestTicketService_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.ticket(t, f.category(t, "Plumbing").ID, domain.TicketPriorityLow)
	_, err := f.tickets.AddComment(ctx, ticket.ID, "note", domain.RoleStudent)
	require.NoError(t, err)

	require.NoError(t, f.tickets.Delete(ctx, ticket.ID))

	_, err = f.tickets.Get(ctx, ticket.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, f.tickets.Delete(ctx, ticket.ID), apperrors.ErrNotFound)

	comments, err := f.store.Comments().ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestTicketService_ListFiltersSortAndPaging(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plumbing := f.category(t, "Plumbing")
	electrical := f.category(t, "Electrical")

	low := f.ticket(t, plumbing.ID, domain.TicketPriorityLow)
	urgent := f.ticket(t, electrical.ID, domain.TicketPriorityUrgent)
	high := f.ticket(t, plumbing.ID, domain.TicketPriorityHigh)
	_, err := f.tickets.AddComment(ctx, high.ID, "photo attached", domain.RoleStudent)
	require.NoError(t, err)

	ids := func(tickets []domain.Ticket) []int64 {
		out := make([]int64, 0, len(tickets))
		for _, ticket := range tickets {
			out = append(out, ticket.ID)
		}
		return out
	}

	got, err := f.tickets.List(ctx, NewTicketListQuery())
	require.NoError(t, err)
	assert.Equal(t, []int64{high.ID, urgent.ID, low.ID}, ids(got))
	assert.Len(t, got[0].Comments, 1)
	assert.NotNil(t, got[1].Comments)

	q := NewTicketListQuery()
	q.SortBy = "priority"
	got, err = f.tickets.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []int64{urgent.ID, high.ID, low.ID}, ids(got))

	q.SortOrder = "asc"
	q.CategoryID = &plumbing.ID
	got, err = f.tickets.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []int64{low.ID, high.ID}, ids(got))

	q = NewTicketListQuery()
	q.SortBy = "id"
	q.SortOrder = "asc"
	q.Skip = 1
	q.Limit = 1
	got, err = f.tickets.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []int64{urgent.ID}, ids(got))

	room := "Z-9999"
	q = NewTicketListQuery()
	q.Room = &room
	got, err = f.tickets.List(ctx, q)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTicketService_ListValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	q := NewTicketListQuery()
	q.SortBy = "title"
	_, err := f.tickets.List(ctx, q)
	require.ErrorIs(t, err, apperrors.ErrValidation)
	de := apperrors.ToDomainError(err)
	require.Len(t, de.Details, 1)
	assert.Equal(t, "sort_by", de.Details[0].Field)
	assert.Equal(t, "Must be one of: id, created_at, updated_at, priority, status", de.Details[0].Message)

	for _, limit := range []int{0, 101, -5} {
		q = NewTicketListQuery()
		q.Limit = limit
		_, err = f.tickets.List(ctx, q)
		assert.ErrorIs(t, err, apperrors.ErrValidation, "limit %d", limit)
	}

	q = NewTicketListQuery()
	q.Limit = 100
	_, err = f.tickets.List(ctx, q)
	assert.NoError(t, err)

	q = NewTicketListQuery()
	q.Skip = -1
	_, err = f.tickets.List(ctx, q)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	q = NewTicketListQuery()
	q.SortOrder = "sideways"
	_, err = f.tickets.List(ctx, q)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestTicketService_ListRejectsEmptySortParams(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	q := NewTicketListQuery()
	q.SortBy = ""
	_, err := f.tickets.List(ctx, q)
	require.ErrorIs(t, err, apperrors.ErrValidation)
	de := apperrors.ToDomainError(err)
	require.Len(t, de.Details, 1)
	assert.Equal(t, "sort_by", de.Details[0].Field)

	q = NewTicketListQuery()
	q.SortOrder = ""
	_, err = f.tickets.List(ctx, q)
	require.ErrorIs(t, err, apperrors.ErrValidation)
	de = apperrors.ToDomainError(err)
	require.Len(t, de.Details, 1)
	assert.Equal(t, "sort_order", de.Details[0].Field)
}

func TestTicketService_RejectsUnknownRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.ticket(t, f.category(t, "Plumbing").ID, domain.TicketPriorityLow)

	_, err := f.tickets.AddComment(ctx, ticket.ID, "hi", domain.Role("admin"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = f.tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusDone, domain.Role(""))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestStringPreview(t *testing.T) {
	assert.Equal(t, "short", stringPreview("  short ", 10))
	assert.Equal(t, "abcdefg...", stringPreview("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", stringPreview("abcdef", 2))
}

func TestStringPreview_KeepsMultibyteRunesWhole(t *testing.T) {
	body := "Течёт кран в душевой на третьем этаже"
	got := stringPreview(body, 10)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "Течёт к...", got)
	assert.Equal(t, 10, utf8.RuneCountInString(got))

	assert.Equal(t, "Те", stringPreview("Течёт", 2))
	assert.Equal(t, "ремонт", stringPreview(" ремонт ", 6))
}
