package domain

import (
	"errors"
	"strings"
)

// Role is the caller's claimed capability. It is request scoped and never persisted on its own.
type Role string

const (
	RoleStudent    Role = "student"
	RoleTechnician Role = "technician"
)

// ErrUnknownRole is returned by ParseRole for empty or unrecognized input.
var ErrUnknownRole = errors.New("must be student or technician")

// ParseRole normalizes a raw header value. Matching ignores case and surrounding whitespace.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleTechnician:
		return RoleTechnician, nil
	default:
		return "", ErrUnknownRole
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTechnician
}
