package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/dorm-maintenance/internal/observability"
	apperrors "github.com/spec-kit/dorm-maintenance/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
// The request logger wraps the error middleware so it sees the mapped status.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details []apperrors.FieldError `json:"details"`
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				// Keyed by route template so ids do not fan out into separate series.
				metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)
				if domainErr.HTTPStatus >= http.StatusInternalServerError {
					logger.Error("request failed", zap.Error(err))
				}
				details := domainErr.Details
				if details == nil {
					details = []apperrors.FieldError{}
				}
				err = c.Status(domainErr.HTTPStatus).JSON(errorResponse{
					Code:    domainErr.Code,
					Message: domainErr.Message,
					Details: details,
				})
			}
		}()
		return c.Next()
	}
}

// toDomainError also maps framework errors such as unmatched routes.
func toDomainError(err error) *apperrors.DomainError {
	if fe, ok := err.(*fiber.Error); ok {
		switch fe.Code {
		case http.StatusNotFound:
			return apperrors.NewDomainError(apperrors.CodeNotFound, "Resource not found", fe.Code, nil)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return apperrors.NewDomainError(apperrors.CodeValidation, fe.Message, http.StatusBadRequest, nil)
		case http.StatusMethodNotAllowed:
			return apperrors.NewDomainError("METHOD_NOT_ALLOWED", fe.Message, fe.Code, nil)
		case http.StatusRequestTimeout:
			return apperrors.NewDomainError("TIMEOUT", fe.Message, fe.Code, nil)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewDomainError("TIMEOUT", "request timed out", http.StatusServiceUnavailable, nil)
	}
	return apperrors.ToDomainError(err)
}
