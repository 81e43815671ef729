package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"coach-llm/internal/domain"
	"coach-llm/internal/llm"
	"coach-llm/internal/repository"
)

const (
	defaultSessionName   = "New conversation"
	maxSessionNameLength = 60
	// Cuántos mensajes iniciales se mandan al LLM para titular la sesión.
	nameContextMessages = 4
)

const nameInstruction = "You generate concise titles for coaching conversations. " +
	"Reply with a descriptive title of 3 to 5 words. Return only the title, nothing else."

// SessionService maneja el ciclo de vida de las sesiones de chat.
type SessionService struct {
	logger    *zap.Logger
	sessions  repository.ChatSessionRepository
	llmClient llm.Client
}

func NewSessionService(logger *zap.Logger, sessions repository.ChatSessionRepository, llmClient llm.Client) *SessionService {
	return &SessionService{
		logger:    logger,
		sessions:  sessions,
		llmClient: llmClient,
	}
}

// Create genera una sesión vacía con identificador opaco nuevo.
func (s *SessionService) Create(ctx context.Context, userID, name, summary string) (domain.ChatSession, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultSessionName
	}
	now := time.Now().UTC()
	session := domain.ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Summary:   strings.TrimSpace(summary),
		Messages:  []domain.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.ChatSession{}, fmt.Errorf("%w: create session: %v", ErrPersistence, err)
	}
	return session, nil
}

// List devuelve las sesiones del usuario sin cuerpos de mensajes.
func (s *SessionService) List(ctx context.Context, userID string) ([]domain.SessionSummary, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", ErrPersistence, err)
	}
	if sessions == nil {
		sessions = []domain.SessionSummary{}
	}
	return sessions, nil
}

// History devuelve los mensajes de una sesión propia, en orden de conversación.
func (s *SessionService) History(ctx context.Context, userID, sessionID string) ([]domain.ChatMessage, error) {
	session, err := s.owned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Messages == nil {
		return []domain.ChatMessage{}, nil
	}
	return session.Messages, nil
}

// Rename cambia el nombre visible de una sesión propia.
func (s *SessionService) Rename(ctx context.Context, userID, sessionID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidRequest
	}
	if _, err := s.owned(ctx, userID, sessionID); err != nil {
		return err
	}
	name = truncateName(name)
	if err := s.sessions.Rename(ctx, userID, sessionID, name); err != nil {
		return fmt.Errorf("%w: rename session: %v", ErrPersistence, err)
	}
	return nil
}

// Delete borra una sesión propia; NotFound si no existe para ese usuario.
func (s *SessionService) Delete(ctx context.Context, userID, sessionID string) error {
	if _, err := s.owned(ctx, userID, sessionID); err != nil {
		return err
	}
	deleted, err := s.sessions.Delete(ctx, userID, sessionID)
	if err != nil {
		return fmt.Errorf("%w: delete session: %v", ErrPersistence, err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// GenerateName pide al LLM un título corto basado en los primeros mensajes.
// Si el LLM falla, cae a un nombre basado en timestamp en lugar de fallar.
func (s *SessionService) GenerateName(ctx context.Context, userID, sessionID string, messages []domain.ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", ErrInvalidRequest
	}
	if _, err := s.owned(ctx, userID, sessionID); err != nil {
		return "", err
	}

	if len(messages) > nameContextMessages {
		messages = messages[:nameContextMessages]
	}
	history := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	name, err := s.llmClient.Generate(ctx, nameInstruction, history)
	if err != nil {
		s.logger.Warn("session name generation failed", zap.Error(err), zap.String("session_id", sessionID))
		name = "Conversation " + time.Now().UTC().Format("Jan 2 15:04")
	} else {
		name = cleanGeneratedName(name)
		if name == "" {
			name = "Conversation " + time.Now().UTC().Format("Jan 2 15:04")
		}
	}

	if err := s.sessions.Rename(ctx, userID, sessionID, name); err != nil {
		return "", fmt.Errorf("%w: rename session: %v", ErrPersistence, err)
	}
	return name, nil
}

func (s *SessionService) owned(ctx context.Context, userID, sessionID string) (domain.ChatSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.ChatSession{}, ErrInvalidRequest
	}
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ChatSession{}, ErrNotFound
		}
		return domain.ChatSession{}, fmt.Errorf("%w: load session: %v", ErrPersistence, err)
	}
	if session.UserID != userID {
		return domain.ChatSession{}, ErrForbidden
	}
	return session, nil
}

// cleanGeneratedName quita comillas y espacios, y recorta al largo máximo.
func cleanGeneratedName(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.Trim(name, "\"'`“”")
	name = strings.TrimSpace(name)
	return truncateName(name)
}

// truncateName recorta a maxSessionNameLength runas, nunca bytes: un corte
// por bytes puede partir una runa multibyte y guardar UTF-8 inválido.
func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= maxSessionNameLength {
		return name
	}
	return strings.TrimSpace(string(runes[:maxSessionNameLength]))
}
