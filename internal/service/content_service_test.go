package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"coach-llm/internal/domain"
	"coach-llm/internal/llm"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Letting Go", "letting-go"},
		{"  One-on-Ones 101!  ", "one-on-ones-101"},
		{"Ya está", "ya-est"},
		{"---", ""},
	}
	for _, tc := range cases {
		if got := Slugify(tc.title); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestChapterFieldColumnsBidirectional(t *testing.T) {
	fields := []string{"categoryId", "title", "slug", "content", "sortOrder"}
	for _, field := range fields {
		column, ok := ChapterColumnForField(field)
		if !ok {
			t.Fatalf("field %q unmapped", field)
		}
		back, ok := ChapterFieldForColumn(column)
		if !ok || back != field {
			t.Errorf("round trip %q -> %q -> %q broken", field, column, back)
		}
	}
	if _, ok := ChapterColumnForField("audioUrl"); ok {
		t.Error("unmapped fields must not resolve")
	}
	if len(chapterFieldColumns) != len(fields) {
		t.Errorf("mapping table drifted: %d entries, test covers %d", len(chapterFieldColumns), len(fields))
	}
}

func newTestContentService(chapters *mockChapterRepo) *ContentService {
	categories := &mockCategoryRepo{categories: []domain.Category{{ID: "cat-1", Title: "Delegation"}}}
	return NewContentService(zap.NewNop(), categories, chapters, llm.NewMockClient())
}

func TestUpdateChapterFieldsTranslatesAndReslugs(t *testing.T) {
	chapters := &mockChapterRepo{chapters: []domain.Chapter{
		{ID: "ch-1", CategoryID: "cat-1", Title: "Old Title", Slug: "old-title", Content: "body", SortOrder: 1},
	}}
	svc := newTestContentService(chapters)

	updated, err := svc.UpdateChapterFields(context.Background(), "ch-1", map[string]any{
		"title":     "Brand New Title",
		"sortOrder": float64(7),
	})
	if err != nil {
		t.Fatalf("UpdateChapterFields: %v", err)
	}
	if updated.Title != "Brand New Title" {
		t.Errorf("title not applied: %q", updated.Title)
	}
	if updated.Slug != "brand-new-title" {
		t.Errorf("slug must be rederived when title changes without an explicit slug, got %q", updated.Slug)
	}
	if updated.SortOrder != 7 {
		t.Errorf("sortOrder not applied: %d", updated.SortOrder)
	}
	if len(chapters.updated) != 1 {
		t.Fatalf("expected one persisted update, got %d", len(chapters.updated))
	}
}

func TestUpdateChapterFieldsKeepsExplicitSlug(t *testing.T) {
	chapters := &mockChapterRepo{chapters: []domain.Chapter{
		{ID: "ch-1", CategoryID: "cat-1", Title: "Old Title", Slug: "old-title"},
	}}
	svc := newTestContentService(chapters)

	updated, err := svc.UpdateChapterFields(context.Background(), "ch-1", map[string]any{
		"title": "New Title",
		"slug":  "kept-slug",
	})
	if err != nil {
		t.Fatalf("UpdateChapterFields: %v", err)
	}
	if updated.Slug != "kept-slug" {
		t.Errorf("explicit slug must win over derivation, got %q", updated.Slug)
	}
}

func TestUpdateChapterFieldsRejectsUnknownField(t *testing.T) {
	chapters := &mockChapterRepo{chapters: []domain.Chapter{
		{ID: "ch-1", CategoryID: "cat-1", Title: "Old Title", Slug: "old-title"},
	}}
	svc := newTestContentService(chapters)

	_, err := svc.UpdateChapterFields(context.Background(), "ch-1", map[string]any{"audioUrl": "/x.mp3"})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("unknown field must be rejected, got %v", err)
	}
	if len(chapters.updated) != 0 {
		t.Error("nothing may be persisted after a rejected update")
	}

	if _, err := svc.UpdateChapterFields(context.Background(), "ch-1", map[string]any{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty update must be rejected, got %v", err)
	}
}

func TestCreateChapterValidatesCategory(t *testing.T) {
	chapters := &mockChapterRepo{}
	svc := newTestContentService(chapters)

	if _, err := svc.CreateChapter(context.Background(), "missing-cat", "Title", "body", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown category must be not found, got %v", err)
	}
	if _, err := svc.CreateChapter(context.Background(), "cat-1", "  ", "body", 0); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("blank title must be rejected, got %v", err)
	}
}
