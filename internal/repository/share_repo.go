package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"coach-llm/internal/domain"
)

// ShareRepository define el contrato de persistencia para links compartidos.
type ShareRepository interface {
	Create(ctx context.Context, link domain.SharedChapterLink) error
	GetByToken(ctx context.Context, token string) (domain.SharedChapterLink, error)
}

type PgShareRepository struct {
	pool *pgxpool.Pool
}

func NewPgShareRepository(pool *pgxpool.Pool) *PgShareRepository {
	return &PgShareRepository{pool: pool}
}

func (r *PgShareRepository) Create(ctx context.Context, link domain.SharedChapterLink) error {
	const query = `
		INSERT INTO shared_chapter_links (token, chapter_id, created_by, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		link.Token,
		link.ChapterID,
		link.CreatedBy,
		link.ExpiresAt,
		link.CreatedAt,
	)
	return err
}

func (r *PgShareRepository) GetByToken(ctx context.Context, token string) (domain.SharedChapterLink, error) {
	const query = `
		SELECT token, chapter_id, created_by, expires_at, created_at
		FROM shared_chapter_links
		WHERE token = $1
	`
	var l domain.SharedChapterLink
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&l.Token,
		&l.ChapterID,
		&l.CreatedBy,
		&l.ExpiresAt,
		&l.CreatedAt,
	)
	if err != nil {
		return domain.SharedChapterLink{}, err
	}
	return l, nil
}
