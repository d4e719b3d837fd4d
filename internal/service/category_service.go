package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/spec-kit/dorm-maintenance/internal/domain"
	"github.com/spec-kit/dorm-maintenance/internal/events"
	"github.com/spec-kit/dorm-maintenance/internal/repository"
	apperrors "github.com/spec-kit/dorm-maintenance/pkg/util/errorutil"
	"github.com/spec-kit/dorm-maintenance/pkg/util/optional"
)

// CategoryCache is the read-through cache consulted by category reads.
type CategoryCache interface {
	GetList(ctx context.Context, includeInactive bool) ([]domain.Category, bool)
	SetList(ctx context.Context, includeInactive bool, categories []domain.Category)
	Get(ctx context.Context, id int64) (*domain.Category, bool)
	Set(ctx context.Context, category *domain.Category)
	Invalidate(ctx context.Context, id int64)
}

// CategoryService manages the category catalog.
type CategoryService struct {
	store      repository.Store
	cache      CategoryCache
	dispatcher events.Dispatcher
	now        Clock
}

// CategoryDependencies bundles collaborators for the category service. Cache and Dispatcher are optional.
type CategoryDependencies struct {
	Store      repository.Store
	Cache      CategoryCache
	Dispatcher events.Dispatcher
	Clock      Clock
}

// CategoryCreateInput describes a new category.
type CategoryCreateInput struct {
	Name        string
	Description *string
}

// CategoryUpdateInput carries a partial update. Absent fields are left untouched.
type CategoryUpdateInput struct {
	Name        optional.Value[string]
	Description optional.Value[string]
	IsActive    optional.Value[bool]
}

// NewCategoryService constructs the service.
func NewCategoryService(deps CategoryDependencies) *CategoryService {
	return &CategoryService{
		store:      deps.Store,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		now:        clockOrDefault(deps.Clock),
	}
}

// Create inserts an active category. Names are unique across active and inactive categories.
func (s *CategoryService) Create(ctx context.Context, input CategoryCreateInput) (*domain.Category, error) {
	category := &domain.Category{
		Name:        input.Name,
		Description: input.Description,
		IsActive:    true,
		CreatedAt:   s.now(),
	}

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := ensureNameAvailable(ctx, tx, category.Name, 0); err != nil {
			return err
		}
		if err := tx.Categories().Create(ctx, category); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewDuplicateName("name")
			}
			return fmt.Errorf("create category: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, category.ID)
	s.publish(ctx, events.EventCategoryCreated, category)
	return category, nil
}

// List returns active categories ordered by id, or every category when includeInactive is set.
func (s *CategoryService) List(ctx context.Context, includeInactive bool) ([]domain.Category, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetList(ctx, includeInactive); ok {
			return cached, nil
		}
	}
	categories, err := s.store.Categories().List(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if s.cache != nil {
		s.cache.SetList(ctx, includeInactive, categories)
	}
	return categories, nil
}

// Get fetches a category regardless of its active flag.
func (s *CategoryService) Get(ctx context.Context, id int64) (*domain.Category, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, id); ok {
			return cached, nil
		}
	}
	category, err := s.store.Categories().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Category")
	}
	if s.cache != nil {
		s.cache.Set(ctx, category)
	}
	return category, nil
}

// Update applies the supplied fields. A null description clears it.
func (s *CategoryService) Update(ctx context.Context, id int64, input CategoryUpdateInput) (*domain.Category, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	var category *domain.Category
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		current, err := tx.Categories().GetByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "Category")
		}
		if input.Name.Present() && input.Name.Value != current.Name {
			if err := ensureNameAvailable(ctx, tx, input.Name.Value, id); err != nil {
				return err
			}
			current.Name = input.Name.Value
		}
		if input.Description.Set {
			if input.Description.Null {
				current.Description = nil
			} else {
				desc := input.Description.Value
				current.Description = &desc
			}
		}
		if input.IsActive.Present() {
			current.IsActive = input.IsActive.Value
		}
		if err := tx.Categories().Update(ctx, current); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewDuplicateName("name")
			}
			return fmt.Errorf("update category: %w", err)
		}
		category = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, category.ID)
	s.publish(ctx, events.EventCategoryUpdated, category)
	return category, nil
}

// Deactivate soft-deletes a category. Deactivating an inactive category succeeds without change.
func (s *CategoryService) Deactivate(ctx context.Context, id int64) error {
	var category *domain.Category
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		current, err := tx.Categories().GetByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "Category")
		}
		if !current.IsActive {
			return nil
		}
		current.IsActive = false
		if err := tx.Categories().Update(ctx, current); err != nil {
			return fmt.Errorf("deactivate category: %w", err)
		}
		category = current
		return nil
	})
	if err != nil {
		return err
	}
	if category == nil {
		return nil
	}

	s.invalidate(ctx, category.ID)
	s.publish(ctx, events.EventCategoryDeactivated, category)
	return nil
}

func (in CategoryUpdateInput) validate() error {
	var details []apperrors.FieldError
	if in.Name.Set && in.Name.Null {
		details = append(details, apperrors.FieldError{Field: "name", Message: "name may not be null"})
	}
	if in.IsActive.Set && in.IsActive.Null {
		details = append(details, apperrors.FieldError{Field: "is_active", Message: "is_active may not be null"})
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("Request validation failed", details...)
	}
	return nil
}

// ensureNameAvailable fails when another category (active or not) already uses name.
func ensureNameAvailable(ctx context.Context, tx repository.Store, name string, selfID int64) error {
	existing, err := tx.Categories().GetByName(ctx, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("lookup category name: %w", err)
	case existing.ID != selfID:
		return apperrors.NewDuplicateName("name")
	default:
		return nil
	}
}

func (s *CategoryService) invalidate(ctx context.Context, id int64) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
}

func (s *CategoryService) publish(ctx context.Context, eventType events.EventType, category *domain.Category) {
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      eventType,
		EntityID:  category.ID,
		Timestamp: s.now(),
		Payload: events.CategoryPayload{
			Name:     category.Name,
			IsActive: category.IsActive,
		},
	})
}
