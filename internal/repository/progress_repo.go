package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"coach-llm/internal/domain"
)

// ProgressRepository define el contrato de persistencia para el avance por usuario.
type ProgressRepository interface {
	Upsert(ctx context.Context, progress domain.UserProgress) error
	ListByUser(ctx context.Context, userID string) ([]domain.UserProgress, error)
	CountCompletedByChapter(ctx context.Context) (map[string]int, error)
}

type PgProgressRepository struct {
	pool *pgxpool.Pool
}

func NewPgProgressRepository(pool *pgxpool.Pool) *PgProgressRepository {
	return &PgProgressRepository{pool: pool}
}

func (r *PgProgressRepository) Upsert(ctx context.Context, progress domain.UserProgress) error {
	const query = `
		INSERT INTO user_progress (user_id, chapter_id, completed, completed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, chapter_id)
		DO UPDATE SET completed = EXCLUDED.completed, completed_at = EXCLUDED.completed_at
	`
	_, err := r.pool.Exec(ctx, query,
		progress.UserID,
		progress.ChapterID,
		progress.Completed,
		progress.CompletedAt,
	)
	return err
}

func (r *PgProgressRepository) ListByUser(ctx context.Context, userID string) ([]domain.UserProgress, error) {
	const query = `
		SELECT user_id, chapter_id, completed, completed_at
		FROM user_progress
		WHERE user_id = $1
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.UserProgress
	for rows.Next() {
		var p domain.UserProgress
		if err := rows.Scan(&p.UserID, &p.ChapterID, &p.Completed, &p.CompletedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// CountCompletedByChapter agrega completados por capítulo para analytics.
func (r *PgProgressRepository) CountCompletedByChapter(ctx context.Context) (map[string]int, error) {
	const query = `
		SELECT chapter_id, count(*)
		FROM user_progress
		WHERE completed = true
		GROUP BY chapter_id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var chapterID string
		var n int
		if err := rows.Scan(&chapterID, &n); err != nil {
			return nil, err
		}
		counts[chapterID] = n
	}
	return counts, rows.Err()
}
