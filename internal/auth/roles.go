package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dorm-maintenance/internal/domain"
)

// RoleFromContext retrieves the role stored by RequireRole.
func RoleFromContext(c *fiber.Ctx) (domain.Role, bool) {
	role, ok := c.Locals(roleKey).(domain.Role)
	if !ok || !role.Valid() {
		return "", false
	}
	return role, true
}
