package service

import (
	"context"
	"fmt"
	"math"

	"coach-llm/internal/domain"
	"coach-llm/internal/repository"
)

// ChapterStats es el conteo de completados por capítulo.
type ChapterStats struct {
	ChapterID      string `json:"chapter_id"`
	Title          string `json:"title"`
	CompletedCount int    `json:"completed_count"`
}

// UserStats es el avance agregado de un usuario.
type UserStats struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	CompletionRate int    `json:"completion_rate"`
}

// AnalyticsOverview es la vista agregada para el panel admin.
type AnalyticsOverview struct {
	TotalUsers    int            `json:"total_users"`
	TotalChapters int            `json:"total_chapters"`
	Chapters      []ChapterStats `json:"chapters"`
	Users         []UserStats    `json:"users"`
}

// AnalyticsService agrega métricas de avance para el panel admin.
type AnalyticsService struct {
	users    repository.UserRepository
	chapters repository.ChapterRepository
	progress repository.ProgressRepository
}

func NewAnalyticsService(
	users repository.UserRepository,
	chapters repository.ChapterRepository,
	progress repository.ProgressRepository,
) *AnalyticsService {
	return &AnalyticsService{users: users, chapters: chapters, progress: progress}
}

func (s *AnalyticsService) Overview(ctx context.Context) (AnalyticsOverview, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return AnalyticsOverview{}, fmt.Errorf("%w: list users: %v", ErrPersistence, err)
	}
	chapters, err := s.chapters.List(ctx)
	if err != nil {
		return AnalyticsOverview{}, fmt.Errorf("%w: list chapters: %v", ErrPersistence, err)
	}
	counts, err := s.progress.CountCompletedByChapter(ctx)
	if err != nil {
		return AnalyticsOverview{}, fmt.Errorf("%w: count progress: %v", ErrPersistence, err)
	}

	overview := AnalyticsOverview{
		TotalUsers:    len(users),
		TotalChapters: len(chapters),
		Chapters:      make([]ChapterStats, 0, len(chapters)),
		Users:         make([]UserStats, 0, len(users)),
	}
	for _, ch := range chapters {
		overview.Chapters = append(overview.Chapters, ChapterStats{
			ChapterID:      ch.ID,
			Title:          ch.Title,
			CompletedCount: counts[ch.ID],
		})
	}
	for _, u := range users {
		rate, err := s.userCompletionRate(ctx, u, len(chapters))
		if err != nil {
			return AnalyticsOverview{}, err
		}
		overview.Users = append(overview.Users, UserStats{
			UserID:         u.ID,
			Email:          u.Email,
			CompletionRate: rate,
		})
	}
	return overview, nil
}

func (s *AnalyticsService) userCompletionRate(ctx context.Context, user domain.User, totalChapters int) (int, error) {
	if totalChapters == 0 {
		return 0, nil
	}
	items, err := s.progress.ListByUser(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: list progress: %v", ErrPersistence, err)
	}
	completed := 0
	for _, p := range items {
		if p.Completed {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(totalChapters))), nil
}
