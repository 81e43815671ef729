package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"coach-llm/internal/domain"
	"coach-llm/internal/repository"
)

func getChapter(ctx context.Context, chapters repository.ChapterRepository, id string) (domain.Chapter, error) {
	chapter, err := chapters.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Chapter{}, ErrNotFound
		}
		return domain.Chapter{}, fmt.Errorf("%w: get chapter: %v", ErrPersistence, err)
	}
	return chapter, nil
}
