package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"coach-llm/internal/domain"
)

// CategoryRepository define el contrato de persistencia para categorías.
type CategoryRepository interface {
	Create(ctx context.Context, category domain.Category) error
	Update(ctx context.Context, category domain.Category) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}

type PgCategoryRepository struct {
	pool *pgxpool.Pool
}

func NewPgCategoryRepository(pool *pgxpool.Pool) *PgCategoryRepository {
	return &PgCategoryRepository{pool: pool}
}

func (r *PgCategoryRepository) Create(ctx context.Context, category domain.Category) error {
	const query = `
		INSERT INTO categories (id, title, slug, description, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		category.ID,
		category.Title,
		category.Slug,
		category.Description,
		category.SortOrder,
		category.CreatedAt,
		category.UpdatedAt,
	)
	return err
}

func (r *PgCategoryRepository) Update(ctx context.Context, category domain.Category) error {
	const query = `
		UPDATE categories
		SET title = $2, slug = $3, description = $4, sort_order = $5, updated_at = $6
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query,
		category.ID,
		category.Title,
		category.Slug,
		category.Description,
		category.SortOrder,
		category.UpdatedAt,
	)
	return err
}

func (r *PgCategoryRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM categories WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *PgCategoryRepository) GetByID(ctx context.Context, id string) (domain.Category, error) {
	const query = `
		SELECT id, title, slug, description, sort_order, created_at, updated_at
		FROM categories
		WHERE id = $1
	`
	var c domain.Category
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Title,
		&c.Slug,
		&c.Description,
		&c.SortOrder,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return domain.Category{}, err
	}
	return c, nil
}

func (r *PgCategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	const query = `
		SELECT id, title, slug, description, sort_order, created_at, updated_at
		FROM categories
		ORDER BY sort_order ASC, created_at ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
