package service

import (
	"context"
	"fmt"

	"github.com/spec-kit/dorm-maintenance/internal/domain"
	"github.com/spec-kit/dorm-maintenance/internal/events"
	"github.com/spec-kit/dorm-maintenance/internal/repository"
	apperrors "github.com/spec-kit/dorm-maintenance/pkg/util/errorutil"
)

const commentPreviewLength = 120

// CommentService appends comments to tickets. Stored comments are never edited or removed
// except through their ticket's deletion.
type CommentService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	now        Clock
}

func newCommentService(store repository.Store, dispatcher events.Dispatcher, now Clock) *CommentService {
	return &CommentService{store: store, dispatcher: dispatcher, now: now}
}

// Add records message on the ticket with the caller's role as author. Any role may comment.
func (s *CommentService) Add(ctx context.Context, ticketID int64, message string, role domain.Role) (*domain.Comment, error) {
	if err := roleError(role); err != nil {
		return nil, err
	}
	if message == "" {
		return nil, apperrors.NewValidationError("Request validation failed",
			apperrors.FieldError{Field: "message", Message: "message is required"})
	}

	comment := &domain.Comment{
		TicketID:   ticketID,
		Message:    message,
		AuthorRole: role,
		CreatedAt:  s.now(),
	}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Tickets().GetByID(ctx, ticketID); err != nil {
			return notFoundOr(err, "Ticket")
		}
		if err := tx.Comments().Create(ctx, comment); err != nil {
			return fmt.Errorf("create comment: %w", notFoundOr(err, "Ticket"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTicketCommentAdded,
		EntityID:  ticketID,
		ActorRole: role,
		Timestamp: comment.CreatedAt,
		Payload: events.TicketCommentAddedPayload{
			CommentID:   comment.ID,
			AuthorRole:  role,
			BodyPreview: stringPreview(comment.Message, commentPreviewLength),
		},
	})
	return comment, nil
}
