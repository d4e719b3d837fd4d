package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dorm-maintenance/internal/api/dto"
	"github.com/spec-kit/dorm-maintenance/internal/service"
)

// CategoriesHandler manages category endpoints.
type CategoriesHandler struct {
	service *service.CategoryService
}

// NewCategoriesHandler constructs handler.
func NewCategoriesHandler(categoryService *service.CategoryService) *CategoriesHandler {
	return &CategoriesHandler{service: categoryService}
}

// CreateCategory POST /categories.
func (h *CategoriesHandler) CreateCategory(c *fiber.Ctx) error {
	var req dto.CreateCategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	category, err := h.service.Create(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewCategoryResponse(category))
}

// ListCategories GET /categories?include_inactive=bool.
func (h *CategoriesHandler) ListCategories(c *fiber.Ctx) error {
	includeInactive, err := parseBoolQuery(c, "include_inactive", false)
	if err != nil {
		return err
	}
	categories, err := h.service.List(c.UserContext(), includeInactive)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewCategoryResponses(categories))
}

// GetCategory GET /categories/:id.
func (h *CategoriesHandler) GetCategory(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	category, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewCategoryResponse(category))
}

// UpdateCategory PUT /categories/:id.
func (h *CategoriesHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateCategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	category, err := h.service.Update(c.UserContext(), id, req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewCategoryResponse(category))
}

// DeleteCategory DELETE /categories/:id deactivates the category.
func (h *CategoriesHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Deactivate(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
