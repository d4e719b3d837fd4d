package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/dorm-maintenance/internal/domain"
	"github.com/spec-kit/dorm-maintenance/internal/events"
	"github.com/spec-kit/dorm-maintenance/internal/repository"
	apperrors "github.com/spec-kit/dorm-maintenance/pkg/util/errorutil"
)

// Clock returns the current time. Tests substitute a deterministic one.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return c
}

// publishEvent runs after commit. Sink failures are reported by the sinks themselves and never
// change the outcome of the request that produced the event.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = dispatcher.Publish(ctx, event)
}

// notFoundOr converts a repository miss into a NotFound for resource.
func notFoundOr(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource)
	}
	return err
}

func roleError(role domain.Role) error {
	if role.Valid() {
		return nil
	}
	return apperrors.NewValidationError("Invalid role",
		apperrors.FieldError{Field: "X-Role", Message: domain.ErrUnknownRole.Error()})
}

// stringPreview shortens body to at most max runes, never splitting a multibyte character.
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
