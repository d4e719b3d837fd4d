package events

import (
	"time"

	"github.com/spec-kit/dorm-maintenance/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket.created"
	EventTicketUpdated       EventType = "ticket.updated"
	EventTicketStatusChanged EventType = "ticket.status_changed"
	EventTicketCommentAdded  EventType = "ticket.comment_added"
	EventTicketDeleted       EventType = "ticket.deleted"
	EventCategoryCreated     EventType = "category.created"
	EventCategoryUpdated     EventType = "category.updated"
	EventCategoryDeactivated EventType = "category.deactivated"
)

// AllEventTypes lists every type a subscriber may register for.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketStatusChanged,
	EventTicketCommentAdded,
	EventTicketDeleted,
	EventCategoryCreated,
	EventCategoryUpdated,
	EventCategoryDeactivated,
}

// Event represents a domain event emitted by services after a successful commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	EntityID  int64       `json:"entity_id"`
	ActorRole domain.Role `json:"actor_role,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CategoryID int64                 `json:"category_id"`
	Room       string                `json:"room"`
	Priority   domain.TicketPriority `json:"priority"`
	Title      string                `json:"title"`
}

// TicketUpdatedPayload lists the fields that were supplied.
type TicketUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID   int64       `json:"comment_id"`
	AuthorRole  domain.Role `json:"author_role"`
	BodyPreview string      `json:"body_preview"`
}

// CategoryPayload payload for category events.
type CategoryPayload struct {
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}
