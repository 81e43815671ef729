package service

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"

	"coach-llm/internal/domain"
	"coach-llm/internal/repository"
)

// mockSessionRepo guarda sesiones en memoria con la misma semántica de
// escritura atómica de lista que el repo real.
type mockSessionRepo struct {
	mu        sync.Mutex
	sessions  map[string]domain.ChatSession
	getErr    error
	updateErr error
	renamed   map[string]string
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{
		sessions: make(map[string]domain.ChatSession),
		renamed:  make(map[string]string),
	}
}

func (m *mockSessionRepo) Create(_ context.Context, session domain.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.ChatSession{}, m.getErr
	}
	session, ok := m.sessions[id]
	if !ok {
		return domain.ChatSession{}, pgx.ErrNoRows
	}
	return session, nil
}

func (m *mockSessionRepo) ListByUser(_ context.Context, userID string) ([]domain.SessionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SessionSummary
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, domain.SessionSummary{ID: s.ID, Name: s.Name, Summary: s.Summary})
		}
	}
	return out, nil
}

func (m *mockSessionRepo) UpdateMessages(_ context.Context, userID, id string, messages []domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	session, ok := m.sessions[id]
	if !ok || session.UserID != userID {
		return nil
	}
	session.Messages = append([]domain.ChatMessage(nil), messages...)
	m.sessions[id] = session
	return nil
}

func (m *mockSessionRepo) Rename(_ context.Context, userID, id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if ok && session.UserID == userID {
		session.Name = name
		m.sessions[id] = session
	}
	m.renamed[id] = name
	return nil
}

func (m *mockSessionRepo) Delete(_ context.Context, userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok || session.UserID != userID {
		return false, nil
	}
	delete(m.sessions, id)
	return true, nil
}

func (m *mockSessionRepo) stored(id string) domain.ChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// mockChapterRepo cubre solo los métodos que el servicio bajo test usa.
type mockChapterRepo struct {
	repository.ChapterRepository
	chapters []domain.Chapter
	listErr  error
	updated  []domain.Chapter
}

func (m *mockChapterRepo) SetAudioURL(_ context.Context, id, audioURL string) error {
	for i, ch := range m.chapters {
		if ch.ID == id {
			m.chapters[i].AudioURL = audioURL
		}
	}
	return nil
}

func (m *mockChapterRepo) Update(_ context.Context, chapter domain.Chapter) error {
	m.updated = append(m.updated, chapter)
	for i, ch := range m.chapters {
		if ch.ID == chapter.ID {
			m.chapters[i] = chapter
		}
	}
	return nil
}

func (m *mockChapterRepo) List(_ context.Context) ([]domain.Chapter, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.chapters, nil
}

func (m *mockChapterRepo) GetByID(_ context.Context, id string) (domain.Chapter, error) {
	for _, ch := range m.chapters {
		if ch.ID == id {
			return ch, nil
		}
	}
	return domain.Chapter{}, pgx.ErrNoRows
}

type mockCategoryRepo struct {
	repository.CategoryRepository
	categories []domain.Category
}

func (m *mockCategoryRepo) List(_ context.Context) ([]domain.Category, error) {
	return m.categories, nil
}

func (m *mockCategoryRepo) GetByID(_ context.Context, id string) (domain.Category, error) {
	for _, c := range m.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Category{}, pgx.ErrNoRows
}

type mockProgressRepo struct {
	repository.ProgressRepository
	items []domain.UserProgress
}

func (m *mockProgressRepo) Upsert(_ context.Context, progress domain.UserProgress) error {
	for i, p := range m.items {
		if p.UserID == progress.UserID && p.ChapterID == progress.ChapterID {
			m.items[i] = progress
			return nil
		}
	}
	m.items = append(m.items, progress)
	return nil
}

func (m *mockProgressRepo) ListByUser(_ context.Context, userID string) ([]domain.UserProgress, error) {
	var out []domain.UserProgress
	for _, p := range m.items {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

// recordingSink acumula los eventos que el relay emitió, en orden.
type recordingSink struct {
	tokens   []string
	done     bool
	errors   []string
	tokenErr error
	doneErr  error
}

func (s *recordingSink) SendToken(token string) error {
	if s.tokenErr != nil {
		return s.tokenErr
	}
	s.tokens = append(s.tokens, token)
	return nil
}

func (s *recordingSink) SendDone() error {
	if s.doneErr != nil {
		return s.doneErr
	}
	s.done = true
	return nil
}

func (s *recordingSink) SendError(msg string) {
	s.errors = append(s.errors, msg)
}
