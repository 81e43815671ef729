package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"coach-llm/internal/domain"
)

// ChapterRepository define el contrato de persistencia para capítulos.
type ChapterRepository interface {
	Create(ctx context.Context, chapter domain.Chapter) error
	Update(ctx context.Context, chapter domain.Chapter) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (domain.Chapter, error)
	GetBySlug(ctx context.Context, slug string) (domain.Chapter, error)
	List(ctx context.Context) ([]domain.Chapter, error)
	SetAudioURL(ctx context.Context, id, audioURL string) error
	SetEmbedding(ctx context.Context, id string, embedding pgvector.Vector) error
	SearchByEmbedding(ctx context.Context, embedding pgvector.Vector, limit int) ([]domain.Chapter, error)
	BulkReorder(ctx context.Context, orderedIDs []string) error
	BulkSetCategory(ctx context.Context, ids []string, categoryID string) error
	BulkDelete(ctx context.Context, ids []string) error
}

type PgChapterRepository struct {
	pool *pgxpool.Pool
}

func NewPgChapterRepository(pool *pgxpool.Pool) *PgChapterRepository {
	return &PgChapterRepository{pool: pool}
}

const chapterColumns = `id, category_id, title, slug, content, sort_order, audio_url, created_at, updated_at`

func (r *PgChapterRepository) Create(ctx context.Context, chapter domain.Chapter) error {
	const query = `
		INSERT INTO chapters (id, category_id, title, slug, content, sort_order, audio_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		chapter.ID,
		chapter.CategoryID,
		chapter.Title,
		chapter.Slug,
		chapter.Content,
		chapter.SortOrder,
		chapter.AudioURL,
		chapter.CreatedAt,
		chapter.UpdatedAt,
	)
	return err
}

func (r *PgChapterRepository) Update(ctx context.Context, chapter domain.Chapter) error {
	const query = `
		UPDATE chapters
		SET category_id = $2, title = $3, slug = $4, content = $5, sort_order = $6, updated_at = $7
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query,
		chapter.ID,
		chapter.CategoryID,
		chapter.Title,
		chapter.Slug,
		chapter.Content,
		chapter.SortOrder,
		chapter.UpdatedAt,
	)
	return err
}

func (r *PgChapterRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM chapters WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *PgChapterRepository) GetByID(ctx context.Context, id string) (domain.Chapter, error) {
	const query = `SELECT ` + chapterColumns + ` FROM chapters WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

func (r *PgChapterRepository) GetBySlug(ctx context.Context, slug string) (domain.Chapter, error) {
	const query = `SELECT ` + chapterColumns + ` FROM chapters WHERE slug = $1`
	return r.scanOne(ctx, query, slug)
}

func (r *PgChapterRepository) List(ctx context.Context) ([]domain.Chapter, error) {
	const query = `
		SELECT ` + chapterColumns + `
		FROM chapters
		ORDER BY sort_order ASC, created_at ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChapters(rows)
}

func (r *PgChapterRepository) SetAudioURL(ctx context.Context, id, audioURL string) error {
	const query = `UPDATE chapters SET audio_url = $2, updated_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, audioURL)
	return err
}

func (r *PgChapterRepository) SetEmbedding(ctx context.Context, id string, embedding pgvector.Vector) error {
	const query = `UPDATE chapters SET embedding = $2, updated_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, embedding)
	return err
}

// SearchByEmbedding ordena por distancia coseno; capítulos sin embedding quedan fuera.
func (r *PgChapterRepository) SearchByEmbedding(ctx context.Context, embedding pgvector.Vector, limit int) ([]domain.Chapter, error) {
	const query = `
		SELECT ` + chapterColumns + `
		FROM chapters
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, embedding, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChapters(rows)
}

// BulkReorder aplica el nuevo orden en una sola transacción.
func (r *PgChapterRepository) BulkReorder(ctx context.Context, orderedIDs []string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `UPDATE chapters SET sort_order = $2, updated_at = now() WHERE id = $1`
		for i, id := range orderedIDs {
			if _, err := tx.Exec(ctx, query, id, i); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PgChapterRepository) BulkSetCategory(ctx context.Context, ids []string, categoryID string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `UPDATE chapters SET category_id = $2, updated_at = now() WHERE id = $1`
		for _, id := range ids {
			if _, err := tx.Exec(ctx, query, id, categoryID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PgChapterRepository) BulkDelete(ctx context.Context, ids []string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `DELETE FROM chapters WHERE id = $1`
		for _, id := range ids {
			if _, err := tx.Exec(ctx, query, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PgChapterRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PgChapterRepository) scanOne(ctx context.Context, query string, arg any) (domain.Chapter, error) {
	var c domain.Chapter
	var audioURL *string
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&c.ID,
		&c.CategoryID,
		&c.Title,
		&c.Slug,
		&c.Content,
		&c.SortOrder,
		&audioURL,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return domain.Chapter{}, err
	}
	if audioURL != nil {
		c.AudioURL = *audioURL
	}
	return c, nil
}

func scanChapters(rows pgx.Rows) ([]domain.Chapter, error) {
	var chapters []domain.Chapter
	for rows.Next() {
		var c domain.Chapter
		var audioURL *string
		err := rows.Scan(
			&c.ID,
			&c.CategoryID,
			&c.Title,
			&c.Slug,
			&c.Content,
			&c.SortOrder,
			&audioURL,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if audioURL != nil {
			c.AudioURL = *audioURL
		}
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}
