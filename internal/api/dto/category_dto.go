package dto

import (
	"time"

	"github.com/spec-kit/dorm-maintenance/internal/domain"
	"github.com/spec-kit/dorm-maintenance/internal/service"
	"github.com/spec-kit/dorm-maintenance/pkg/util/optional"
	"github.com/spec-kit/dorm-maintenance/pkg/util/validate"
)

// CreateCategoryRequest payload.
type CreateCategoryRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

// Validate checks field constraints.
func (r CreateCategoryRequest) Validate() error {
	return validate.Struct(r)
}

// ToInput converts the payload for the service layer.
func (r CreateCategoryRequest) ToInput() service.CategoryCreateInput {
	return service.CategoryCreateInput{Name: r.Name, Description: r.Description}
}

// UpdateCategoryRequest payload. Every field is optional; description may be null to clear it.
type UpdateCategoryRequest struct {
	Name        optional.Value[string] `json:"name"`
	Description optional.Value[string] `json:"description"`
	IsActive    optional.Value[bool]   `json:"is_active"`
}

// Validate checks the fields that were supplied.
func (r UpdateCategoryRequest) Validate() error {
	var f validate.Fields
	if r.Name.Set {
		if r.Name.Null {
			f.Fail("name", "name may not be null")
		} else {
			f.Check("name", r.Name.Value, "min=2,max=100")
		}
	}
	if r.Description.Present() {
		f.Check("description", r.Description.Value, "max=255")
	}
	if r.IsActive.Set && r.IsActive.Null {
		f.Fail("is_active", "is_active may not be null")
	}
	return f.Err()
}

// ToInput converts the payload for the service layer.
func (r UpdateCategoryRequest) ToInput() service.CategoryUpdateInput {
	return service.CategoryUpdateInput{
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
	}
}

// CategoryResponse representation.
type CategoryResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewCategoryResponse maps a domain category.
func NewCategoryResponse(c *domain.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
	}
}

// NewCategoryResponses maps a list, never returning nil.
func NewCategoryResponses(categories []domain.Category) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, NewCategoryResponse(&categories[i]))
	}
	return out
}
