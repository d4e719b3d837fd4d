package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/dorm-maintenance/internal/domain"
	apperrors "github.com/spec-kit/dorm-maintenance/pkg/util/errorutil"
)

func newRoleApp(seen *domain.Role) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code, "details": de.Details})
		},
	})
	app.Get("/", RequireRole(), func(c *fiber.Ctx) error {
		role, ok := RoleFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		*seen = role
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func TestRequireRole_AcceptsNormalisedHeader(t *testing.T) {
	for raw, want := range map[string]domain.Role{
		"student":      domain.RoleStudent,
		" TECHNICIAN ": domain.RoleTechnician,
		"Student":      domain.RoleStudent,
		"technician\t": domain.RoleTechnician,
	} {
		var seen domain.Role
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RoleHeader, raw)

		resp, err := newRoleApp(&seen).Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode, raw)
		assert.Equal(t, want, seen)
	}
}

func TestRequireRole_RejectsMissingOrUnknown(t *testing.T) {
	for _, raw := range []string{"", "admin", "  "} {
		var seen domain.Role
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if raw != "" {
			req.Header.Set(RoleHeader, raw)
		}

		resp, err := newRoleApp(&seen).Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "%q", raw)
		assert.Empty(t, seen)
	}
}

func TestRoleFromContext_Missing(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		_, ok := RoleFromContext(c)
		assert.False(t, ok)
		return c.SendStatus(http.StatusOK)
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
