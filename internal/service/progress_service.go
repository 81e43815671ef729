package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"coach-llm/internal/domain"
	"coach-llm/internal/repository"
)

// ProgressService maneja el marcado de capítulos completados por usuario.
type ProgressService struct {
	progress repository.ProgressRepository
	chapters repository.ChapterRepository
}

func NewProgressService(progress repository.ProgressRepository, chapters repository.ChapterRepository) *ProgressService {
	return &ProgressService{progress: progress, chapters: chapters}
}

// SetCompleted marca o desmarca un capítulo como completado (upsert).
func (s *ProgressService) SetCompleted(ctx context.Context, userID, chapterID string, completed bool) (domain.UserProgress, error) {
	chapterID = strings.TrimSpace(chapterID)
	if chapterID == "" {
		return domain.UserProgress{}, ErrInvalidRequest
	}

	entry := domain.UserProgress{
		UserID:    userID,
		ChapterID: chapterID,
		Completed: completed,
	}
	if completed {
		now := time.Now().UTC()
		entry.CompletedAt = &now
	}
	if err := s.progress.Upsert(ctx, entry); err != nil {
		return domain.UserProgress{}, fmt.Errorf("%w: upsert progress: %v", ErrPersistence, err)
	}
	return entry, nil
}

// ListByUser devuelve todas las entradas de avance del usuario.
func (s *ProgressService) ListByUser(ctx context.Context, userID string) ([]domain.UserProgress, error) {
	items, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list progress: %v", ErrPersistence, err)
	}
	if items == nil {
		items = []domain.UserProgress{}
	}
	return items, nil
}

// Summary calcula el porcentaje de avance sobre la biblioteca completa.
func (s *ProgressService) Summary(ctx context.Context, userID string) (domain.ProgressSummary, error) {
	chapters, err := s.chapters.List(ctx)
	if err != nil {
		return domain.ProgressSummary{}, fmt.Errorf("%w: list chapters: %v", ErrPersistence, err)
	}
	items, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return domain.ProgressSummary{}, fmt.Errorf("%w: list progress: %v", ErrPersistence, err)
	}

	chapterIDs := make(map[string]bool, len(chapters))
	for _, ch := range chapters {
		chapterIDs[ch.ID] = true
	}
	completedCount := 0
	for _, p := range items {
		// Entradas huérfanas de capítulos borrados no cuentan.
		if p.Completed && chapterIDs[p.ChapterID] {
			completedCount++
		}
	}

	summary := domain.ProgressSummary{
		TotalChapters:     len(chapters),
		CompletedChapters: completedCount,
	}
	if summary.TotalChapters > 0 {
		summary.CompletionRate = int(math.Round(100 * float64(completedCount) / float64(summary.TotalChapters)))
	}
	return summary, nil
}
