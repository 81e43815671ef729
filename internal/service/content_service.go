package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"coach-llm/internal/domain"
	"coach-llm/internal/llm"
	"coach-llm/internal/repository"
)

// ContentService cubre el CRUD de la biblioteca (categorías y capítulos),
// las operaciones bulk del CMS y la búsqueda semántica por embeddings.
type ContentService struct {
	logger     *zap.Logger
	categories repository.CategoryRepository
	chapters   repository.ChapterRepository
	llmClient  llm.Client
}

func NewContentService(
	logger *zap.Logger,
	categories repository.CategoryRepository,
	chapters repository.ChapterRepository,
	llmClient llm.Client,
) *ContentService {
	return &ContentService{
		logger:     logger,
		categories: categories,
		chapters:   chapters,
		llmClient:  llmClient,
	}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify deriva un slug navegable a partir del título.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func (s *ContentService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list categories: %v", ErrPersistence, err)
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	return categories, nil
}

func (s *ContentService) CreateCategory(ctx context.Context, title, description string, sortOrder int) (domain.Category, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Category{}, ErrInvalidRequest
	}
	now := time.Now().UTC()
	category := domain.Category{
		ID:          uuid.NewString(),
		Title:       title,
		Slug:        Slugify(title),
		Description: strings.TrimSpace(description),
		SortOrder:   sortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return domain.Category{}, fmt.Errorf("%w: create category: %v", ErrPersistence, err)
	}
	return category, nil
}

func (s *ContentService) UpdateCategory(ctx context.Context, id, title, description string, sortOrder int) (domain.Category, error) {
	category, err := s.getCategory(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Category{}, ErrInvalidRequest
	}
	category.Title = title
	category.Slug = Slugify(title)
	category.Description = strings.TrimSpace(description)
	category.SortOrder = sortOrder
	category.UpdatedAt = time.Now().UTC()
	if err := s.categories.Update(ctx, category); err != nil {
		return domain.Category{}, fmt.Errorf("%w: update category: %v", ErrPersistence, err)
	}
	return category, nil
}

func (s *ContentService) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.getCategory(ctx, id); err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: delete category: %v", ErrPersistence, err)
	}
	return nil
}

func (s *ContentService) ListChapters(ctx context.Context) ([]domain.Chapter, error) {
	chapters, err := s.chapters.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list chapters: %v", ErrPersistence, err)
	}
	if chapters == nil {
		chapters = []domain.Chapter{}
	}
	return chapters, nil
}

func (s *ContentService) GetChapterBySlug(ctx context.Context, slug string) (domain.Chapter, error) {
	chapter, err := s.chapters.GetBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Chapter{}, ErrNotFound
		}
		return domain.Chapter{}, fmt.Errorf("%w: get chapter: %v", ErrPersistence, err)
	}
	return chapter, nil
}

func (s *ContentService) GetChapterByID(ctx context.Context, id string) (domain.Chapter, error) {
	chapter, err := s.chapters.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Chapter{}, ErrNotFound
		}
		return domain.Chapter{}, fmt.Errorf("%w: get chapter: %v", ErrPersistence, err)
	}
	return chapter, nil
}

func (s *ContentService) CreateChapter(ctx context.Context, categoryID, title, content string, sortOrder int) (domain.Chapter, error) {
	title = strings.TrimSpace(title)
	categoryID = strings.TrimSpace(categoryID)
	if title == "" || categoryID == "" {
		return domain.Chapter{}, ErrInvalidRequest
	}
	if _, err := s.getCategory(ctx, categoryID); err != nil {
		return domain.Chapter{}, err
	}
	now := time.Now().UTC()
	chapter := domain.Chapter{
		ID:         uuid.NewString(),
		CategoryID: categoryID,
		Title:      title,
		Slug:       Slugify(title),
		Content:    content,
		SortOrder:  sortOrder,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.chapters.Create(ctx, chapter); err != nil {
		return domain.Chapter{}, fmt.Errorf("%w: create chapter: %v", ErrPersistence, err)
	}
	return chapter, nil
}

// UpdateChapterFields aplica una actualización parcial. Las claves vienen en
// camelCase y se traducen con la tabla de mapeo; claves desconocidas son un
// error de request, no un passthrough silencioso.
func (s *ContentService) UpdateChapterFields(ctx context.Context, id string, fields map[string]any) (domain.Chapter, error) {
	if len(fields) == 0 {
		return domain.Chapter{}, ErrInvalidRequest
	}
	chapter, err := s.GetChapterByID(ctx, id)
	if err != nil {
		return domain.Chapter{}, err
	}

	for field, value := range fields {
		column, ok := ChapterColumnForField(field)
		if !ok {
			return domain.Chapter{}, fmt.Errorf("%w: unknown field %q", ErrInvalidRequest, field)
		}
		if err := applyChapterColumn(&chapter, column, value); err != nil {
			return domain.Chapter{}, err
		}
	}
	// Título nuevo sin slug explícito: derivarlo de nuevo.
	if _, hasTitle := fields["title"]; hasTitle {
		if _, hasSlug := fields["slug"]; !hasSlug {
			chapter.Slug = Slugify(chapter.Title)
		}
	}
	chapter.UpdatedAt = time.Now().UTC()

	if err := s.chapters.Update(ctx, chapter); err != nil {
		return domain.Chapter{}, fmt.Errorf("%w: update chapter: %v", ErrPersistence, err)
	}
	return chapter, nil
}

func (s *ContentService) DeleteChapter(ctx context.Context, id string) error {
	if _, err := s.GetChapterByID(ctx, id); err != nil {
		return err
	}
	if err := s.chapters.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: delete chapter: %v", ErrPersistence, err)
	}
	return nil
}

// ReorderChapters aplica el orden recibido como una transacción única.
func (s *ContentService) ReorderChapters(ctx context.Context, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return ErrInvalidRequest
	}
	if err := s.chapters.BulkReorder(ctx, orderedIDs); err != nil {
		return fmt.Errorf("%w: reorder chapters: %v", ErrPersistence, err)
	}
	return nil
}

func (s *ContentService) BulkSetCategory(ctx context.Context, ids []string, categoryID string) error {
	categoryID = strings.TrimSpace(categoryID)
	if len(ids) == 0 || categoryID == "" {
		return ErrInvalidRequest
	}
	if _, err := s.getCategory(ctx, categoryID); err != nil {
		return err
	}
	if err := s.chapters.BulkSetCategory(ctx, ids, categoryID); err != nil {
		return fmt.Errorf("%w: bulk set category: %v", ErrPersistence, err)
	}
	return nil
}

func (s *ContentService) BulkDeleteChapters(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return ErrInvalidRequest
	}
	if err := s.chapters.BulkDelete(ctx, ids); err != nil {
		return fmt.Errorf("%w: bulk delete chapters: %v", ErrPersistence, err)
	}
	return nil
}

// RefreshEmbedding regenera el embedding de un capítulo a partir de su texto.
func (s *ContentService) RefreshEmbedding(ctx context.Context, id string) error {
	chapter, err := s.GetChapterByID(ctx, id)
	if err != nil {
		return err
	}
	vector, err := s.llmClient.Embed(ctx, chapter.Title+"\n\n"+chapter.Content)
	if err != nil {
		s.logger.Error("chapter embedding failed", zap.Error(err), zap.String("chapter_id", id))
		return ErrUpstreamUnavailable
	}
	if err := s.chapters.SetEmbedding(ctx, id, pgvector.NewVector(vector)); err != nil {
		return fmt.Errorf("%w: set embedding: %v", ErrPersistence, err)
	}
	return nil
}

// SearchChapters busca por similitud semántica sobre los embeddings.
func (s *ContentService) SearchChapters(ctx context.Context, query string, limit int) ([]domain.Chapter, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidRequest
	}
	if limit <= 0 || limit > 20 {
		limit = 5
	}
	vector, err := s.llmClient.Embed(ctx, query)
	if err != nil {
		s.logger.Error("query embedding failed", zap.Error(err))
		return nil, ErrUpstreamUnavailable
	}
	chapters, err := s.chapters.SearchByEmbedding(ctx, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: search chapters: %v", ErrPersistence, err)
	}
	if chapters == nil {
		chapters = []domain.Chapter{}
	}
	return chapters, nil
}

func (s *ContentService) getCategory(ctx context.Context, id string) (domain.Category, error) {
	category, err := s.categories.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Category{}, ErrNotFound
		}
		return domain.Category{}, fmt.Errorf("%w: get category: %v", ErrPersistence, err)
	}
	return category, nil
}

func applyChapterColumn(chapter *domain.Chapter, column string, value any) error {
	switch column {
	case "category_id", "title", "slug", "content":
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: field for column %q must be a string", ErrInvalidRequest, column)
		}
		switch column {
		case "category_id":
			chapter.CategoryID = strings.TrimSpace(str)
		case "title":
			chapter.Title = strings.TrimSpace(str)
		case "slug":
			chapter.Slug = Slugify(str)
		case "content":
			chapter.Content = str
		}
	case "sort_order":
		// JSON numbers llegan como float64.
		num, ok := value.(float64)
		if !ok {
			return fmt.Errorf("%w: field for column %q must be a number", ErrInvalidRequest, column)
		}
		chapter.SortOrder = int(num)
	default:
		return fmt.Errorf("%w: unmapped column %q", ErrInvalidRequest, column)
	}
	return nil
}
