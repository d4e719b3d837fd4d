package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dorm-maintenance/internal/domain"
	apperrors "github.com/spec-kit/dorm-maintenance/pkg/util/errorutil"
)

// RoleHeader carries the caller's role. It is trusted as sent; there is no authentication.
const RoleHeader = "X-Role"

const roleKey = "caller_role"

// RequireRole parses the role header and stores it for handlers. A missing or unknown
// role is rejected as a validation failure before the handler runs.
func RequireRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, err := domain.ParseRole(c.Get(RoleHeader))
		if err != nil {
			return apperrors.NewValidationError("Invalid or missing role header",
				apperrors.FieldError{Field: RoleHeader, Message: err.Error()})
		}
		c.Locals(roleKey, role)
		return c.Next()
	}
}
