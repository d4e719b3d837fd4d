package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/dorm-maintenance/internal/events"
)

// ActivityLogService writes an audit line for every domain event.
type ActivityLogService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewActivityLogService creates the service.
func NewActivityLogService(dispatcher events.Dispatcher, logger *zap.Logger) *ActivityLogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityLogService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *ActivityLogService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.handleTicketEvent)
	a.dispatcher.Subscribe(events.EventTicketUpdated, a.handleTicketEvent)
	a.dispatcher.Subscribe(events.EventTicketDeleted, a.handleTicketEvent)
	a.dispatcher.Subscribe(events.EventTicketStatusChanged, a.handleTicketStatusChanged)
	a.dispatcher.Subscribe(events.EventTicketCommentAdded, a.handleTicketEvent)
	a.dispatcher.Subscribe(events.EventCategoryCreated, a.handleCategoryEvent)
	a.dispatcher.Subscribe(events.EventCategoryUpdated, a.handleCategoryEvent)
	a.dispatcher.Subscribe(events.EventCategoryDeactivated, a.handleCategoryEvent)
}

func (a *ActivityLogService) handleTicketEvent(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int64("ticket_id", event.EntityID),
		zap.String("actor_role", string(event.ActorRole)),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *ActivityLogService) handleTicketStatusChanged(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return a.handleTicketEvent(context.Background(), event)
	}
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int64("ticket_id", event.EntityID),
		zap.String("from", string(payload.OldStatus)),
		zap.String("to", string(payload.NewStatus)))
	return nil
}

func (a *ActivityLogService) handleCategoryEvent(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int64("category_id", event.EntityID),
		zap.Any("payload", event.Payload))
	return nil
}
