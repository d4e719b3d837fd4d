package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/dorm-maintenance/internal/domain"
	"github.com/spec-kit/dorm-maintenance/internal/events"
	"github.com/spec-kit/dorm-maintenance/internal/repository"
)

// stepClock advances by one second on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func recordEvents(d events.Dispatcher) *eventRecorder {
	r := &eventRecorder{}
	events.SubscribeAll(d, func(_ context.Context, e events.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
		return nil
	})
	return r
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *eventRecorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func (r *eventRecorder) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fixture struct {
	store      repository.Store
	categories *CategoryService
	tickets    *TicketService
	events     *eventRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher()
	clock := newStepClock()
	return &fixture{
		store:      store,
		categories: NewCategoryService(CategoryDependencies{Store: store, Dispatcher: dispatcher, Clock: clock.Now}),
		tickets:    NewTicketService(TicketDependencies{Store: store, Dispatcher: dispatcher, Clock: clock.Now}),
		events:     recordEvents(dispatcher),
	}
}

func (f *fixture) category(t *testing.T, name string) *domain.Category {
	t.Helper()
	c, err := f.categories.Create(context.Background(), CategoryCreateInput{Name: name})
	require.NoError(t, err)
	return c
}

func (f *fixture) ticket(t *testing.T, categoryID int64, priority domain.TicketPriority) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Create(context.Background(), TicketCreateInput{
		Title:       "Leaking shower",
		Description: "Water pools under the shower tray",
		Room:        "A-1207",
		Priority:    priority,
		CategoryID:  categoryID,
	})
	require.NoError(t, err)
	return ticket
}
