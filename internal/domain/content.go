package domain

import (
	"time"

	pgvector "github.com/pgvector/pgvector-go"
)

type Category struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Chapter es una unidad de contenido de la biblioteca. El embedding es
// opcional y solo existe cuando el admin lo regeneró explícitamente.
type Chapter struct {
	ID         string           `json:"id"`
	CategoryID string           `json:"category_id"`
	Title      string           `json:"title"`
	Slug       string           `json:"slug"`
	Content    string           `json:"content"`
	SortOrder  int              `json:"sort_order"`
	AudioURL   string           `json:"audio_url,omitempty"`
	Embedding  *pgvector.Vector `json:"-"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// SharedChapterLink permite acceso público a un capítulo via token.
type SharedChapterLink struct {
	Token     string    `json:"token"`
	ChapterID string    `json:"chapter_id"`
	CreatedBy string    `json:"created_by"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired indica si el link ya no debe resolverse.
func (l SharedChapterLink) Expired(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && now.After(l.ExpiresAt)
}
