package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"coach-llm/internal/domain"
	"coach-llm/internal/repository"
)

const defaultShareTTL = 30 * 24 * time.Hour

// ShareService crea y resuelve links públicos de capítulos.
type ShareService struct {
	shares   repository.ShareRepository
	chapters repository.ChapterRepository
}

func NewShareService(shares repository.ShareRepository, chapters repository.ChapterRepository) *ShareService {
	return &ShareService{shares: shares, chapters: chapters}
}

// CreateLink genera un token opaco para compartir un capítulo.
func (s *ShareService) CreateLink(ctx context.Context, userID, chapterID string, ttl time.Duration) (domain.SharedChapterLink, error) {
	chapterID = strings.TrimSpace(chapterID)
	if chapterID == "" {
		return domain.SharedChapterLink{}, ErrInvalidRequest
	}
	if _, err := getChapter(ctx, s.chapters, chapterID); err != nil {
		return domain.SharedChapterLink{}, err
	}
	if ttl <= 0 {
		ttl = defaultShareTTL
	}

	now := time.Now().UTC()
	link := domain.SharedChapterLink{
		Token:     uuid.NewString(),
		ChapterID: chapterID,
		CreatedBy: userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.shares.Create(ctx, link); err != nil {
		return domain.SharedChapterLink{}, fmt.Errorf("%w: create share link: %v", ErrPersistence, err)
	}
	return link, nil
}

// Resolve devuelve el capítulo detrás de un token vigente. Tokens vencidos o
// inexistentes son NotFound para no filtrar su existencia.
func (s *ShareService) Resolve(ctx context.Context, token string) (domain.Chapter, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Chapter{}, ErrInvalidRequest
	}
	link, err := s.shares.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Chapter{}, ErrNotFound
		}
		return domain.Chapter{}, fmt.Errorf("%w: get share link: %v", ErrPersistence, err)
	}
	if link.Expired(time.Now().UTC()) {
		return domain.Chapter{}, ErrNotFound
	}
	return getChapter(ctx, s.chapters, link.ChapterID)
}
