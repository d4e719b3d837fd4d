package repository

import (
	"context"

	"github.com/spec-kit/dorm-maintenance/internal/domain"
)

// CategoryRepository manages category persistence.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	GetByName(ctx context.Context, name string) (*domain.Category, error)
	List(ctx context.Context, includeInactive bool) ([]domain.Category, error)
}

type categoryRepository struct {
	db DBTX
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (name, description, is_active, created_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		category.Name,
		category.Description,
		category.IsActive,
		category.CreatedAt,
	).Scan(&category.ID)
	return mapPgError(err)
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	const query = `
        UPDATE categories SET name=$1, description=$2, is_active=$3
        WHERE id=$4`
	cmd, err := r.db.Exec(ctx, query,
		category.Name,
		category.Description,
		category.IsActive,
		category.ID,
	)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	const query = `
        SELECT id, name, description, is_active, created_at
        FROM categories WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *categoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	const query = `
        SELECT id, name, description, is_active, created_at
        FROM categories WHERE name=$1`
	return r.fetchSingle(ctx, query, name)
}

func (r *categoryRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Category, error) {
	var category domain.Category
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.IsActive,
		&category.CreatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context, includeInactive bool) ([]domain.Category, error) {
	query := `
        SELECT id, name, description, is_active, created_at
        FROM categories`
	if !includeInactive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Category{}
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Description, &category.IsActive, &category.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}
