package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dorm-maintenance/internal/api/dto"
	"github.com/spec-kit/dorm-maintenance/internal/auth"
	"github.com/spec-kit/dorm-maintenance/internal/domain"
	apperrors "github.com/spec-kit/dorm-maintenance/pkg/util/errorutil"
)

// pathID parses a positive integer route parameter.
func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("Invalid path parameter",
			apperrors.FieldError{Field: name, Message: name + " must be a positive integer"})
	}
	return id, nil
}

// parseBody decodes a JSON body; a malformed document is a validation failure.
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("Invalid request body",
			apperrors.FieldError{Field: "body", Message: err.Error()})
	}
	return nil
}

func callerRole(c *fiber.Ctx) (domain.Role, error) {
	role, ok := auth.RoleFromContext(c)
	if !ok {
		return "", apperrors.NewValidationError("Invalid or missing role header",
			apperrors.FieldError{Field: auth.RoleHeader, Message: domain.ErrUnknownRole.Error()})
	}
	return role, nil
}

// queryParam returns the raw value of name and whether the key was sent at all, so that
// "?limit=" reaches validation instead of falling back to the default.
func queryParam(c *fiber.Ctx, name string) (string, bool) {
	args := c.Context().QueryArgs()
	if !args.Has(name) {
		return "", false
	}
	return string(args.Peek(name)), true
}

// parseBoolQuery accepts 1/0, true/false, t/f, yes/no, y/n and on/off in any case.
// An absent key yields def; an empty or unrecognized value is a validation failure.
func parseBoolQuery(c *fiber.Ctx, name string, def bool) (bool, error) {
	raw, ok := queryParam(c, name)
	if !ok {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	}
	return def, apperrors.NewValidationError("Request validation failed",
		apperrors.FieldError{Field: name, Message: name + " must be a boolean"})
}

// parseTicketListQuery reads the list query string over the defaults, reporting the first
// malformed number by field name. A key sent with an empty value is validated, not defaulted.
func parseTicketListQuery(c *fiber.Ctx) (dto.TicketListQuery, error) {
	q := dto.NewTicketListQuery()
	var details []apperrors.FieldError

	intParam := func(name string, dst *int) {
		raw, ok := queryParam(c, name)
		if !ok {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			details = append(details, apperrors.FieldError{Field: name, Message: name + " must be an integer"})
			return
		}
		*dst = v
	}
	intParam("skip", &q.Skip)
	intParam("limit", &q.Limit)

	if raw, ok := queryParam(c, "category_id"); ok {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			details = append(details, apperrors.FieldError{Field: "category_id", Message: "category_id must be an integer"})
		} else {
			q.CategoryID = &v
		}
	}
	if raw, ok := queryParam(c, "status"); ok {
		q.Status = &raw
	}
	if raw, ok := queryParam(c, "priority"); ok {
		q.Priority = &raw
	}
	if raw, ok := queryParam(c, "room"); ok {
		q.Room = &raw
	}
	if raw, ok := queryParam(c, "sort_by"); ok {
		q.SortBy = raw
	}
	if raw, ok := queryParam(c, "sort_order"); ok {
		q.SortOrder = raw
	}

	if len(details) > 0 {
		return q, apperrors.NewValidationError("Request validation failed", details...)
	}
	return q, q.Validate()
}
