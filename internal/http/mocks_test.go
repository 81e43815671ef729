package http

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"coach-llm/internal/domain"
	"coach-llm/internal/repository"
	"coach-llm/internal/service"
)

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.ChatSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]domain.ChatSession)}
}

func (f *fakeSessionRepo) Create(_ context.Context, session domain.ChatSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id string) (domain.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return domain.ChatSession{}, pgx.ErrNoRows
	}
	return session, nil
}

func (f *fakeSessionRepo) ListByUser(_ context.Context, userID string) ([]domain.SessionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SessionSummary
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, domain.SessionSummary{ID: s.ID, Name: s.Name, Summary: s.Summary})
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) UpdateMessages(_ context.Context, userID, id string, messages []domain.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if ok && session.UserID == userID {
		session.Messages = append([]domain.ChatMessage(nil), messages...)
		f.sessions[id] = session
	}
	return nil
}

func (f *fakeSessionRepo) Rename(_ context.Context, userID, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if ok && session.UserID == userID {
		session.Name = name
		f.sessions[id] = session
	}
	return nil
}

func (f *fakeSessionRepo) Delete(_ context.Context, userID, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok || session.UserID != userID {
		return false, nil
	}
	delete(f.sessions, id)
	return true, nil
}

func (f *fakeSessionRepo) stored(id string) domain.ChatSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id]
}

type fakeChapterRepo struct {
	repository.ChapterRepository
	chapters []domain.Chapter
}

func (f *fakeChapterRepo) List(_ context.Context) ([]domain.Chapter, error) {
	return f.chapters, nil
}

type fakeCategoryRepo struct {
	repository.CategoryRepository
}

func (f *fakeCategoryRepo) List(_ context.Context) ([]domain.Category, error) {
	return nil, nil
}

type fakeProgressRepo struct {
	repository.ProgressRepository
}

func (f *fakeProgressRepo) ListByUser(_ context.Context, _ string) ([]domain.UserProgress, error) {
	return nil, nil
}

// asUser simula un request ya autenticado, sin pasar por el parser de JWT.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(authClaimsKey, service.Claims{UserID: userID, Email: userID + "@example.com"})
		c.Next()
	}
}
