package domain

import "time"

// UserProgress marca la finalización de un capítulo por usuario.
type UserProgress struct {
	UserID      string     `json:"user_id"`
	ChapterID   string     `json:"chapter_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ProgressSummary agrega el avance de un usuario sobre la biblioteca.
type ProgressSummary struct {
	TotalChapters     int `json:"total_chapters"`
	CompletedChapters int `json:"completed_chapters"`
	CompletionRate    int `json:"completion_rate"`
}
