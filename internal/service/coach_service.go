package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"coach-llm/internal/domain"
	"coach-llm/internal/llm"
	"coach-llm/internal/repository"
)

// StreamSink recibe los eventos que el relay reenvía al cliente. La capa HTTP
// lo implementa sobre la conexión SSE; los tests usan un sink en memoria.
type StreamSink interface {
	SendToken(token string) error
	SendDone() error
	SendError(msg string)
}

const upstreamTimeout = 90 * time.Second

// CoachService orquesta los turnos de chat: arma el contexto, llama al LLM y
// persiste el intercambio completo en la sesión.
type CoachService struct {
	logger     *zap.Logger
	llmClient  llm.Client
	sessions   repository.ChatSessionRepository
	chapters   repository.ChapterRepository
	categories repository.CategoryRepository
	progress   repository.ProgressRepository
	builder    CoachPromptBuilder
	limiter    ChatRateLimiter
	locks      *sessionLocks
}

var ErrRateLimited = errors.New("rate limited")

func NewCoachService(
	logger *zap.Logger,
	llmClient llm.Client,
	sessions repository.ChatSessionRepository,
	chapters repository.ChapterRepository,
	categories repository.CategoryRepository,
	progress repository.ProgressRepository,
	builder CoachPromptBuilder,
	limiter ChatRateLimiter,
) *CoachService {
	return &CoachService{
		logger:     logger,
		llmClient:  llmClient,
		sessions:   sessions,
		chapters:   chapters,
		categories: categories,
		progress:   progress,
		builder:    builder,
		limiter:    limiter,
		locks:      newSessionLocks(),
	}
}

// Chat ejecuta un turno completo no-streaming y devuelve el mensaje del coach.
// El mensaje del usuario se persiste aunque el LLM falle, para no perder un
// lado del intercambio en silencio.
func (s *CoachService) Chat(ctx context.Context, userID, sessionID, message string) (domain.ChatMessage, error) {
	message = strings.TrimSpace(message)
	sessionID = strings.TrimSpace(sessionID)
	if message == "" || sessionID == "" {
		return domain.ChatMessage{}, ErrInvalidRequest
	}
	if s.limiter != nil && !s.limiter.Allow(userID) {
		return domain.ChatMessage{}, ErrRateLimited
	}

	unlock := s.locks.acquire(userID, sessionID)
	defer unlock()

	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	userMsg := domain.ChatMessage{
		Role:      domain.ChatRoleUser,
		Content:   message,
		CreatedAt: time.Now().UTC(),
	}
	messages := append(session.Messages, userMsg)
	if err := s.sessions.UpdateMessages(ctx, userID, sessionID, messages); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: persist user message: %v", ErrPersistence, err)
	}

	system, err := s.buildSystemPrompt(ctx, userID)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	llmCtx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()

	reply, err := s.llmClient.Generate(llmCtx, system, toLLMMessages(messages))
	if err != nil {
		s.logger.Error("llm generate failed", zap.Error(err), zap.String("session_id", sessionID))
		return domain.ChatMessage{}, ErrUpstreamUnavailable
	}

	assistantMsg := domain.ChatMessage{
		Role:      domain.ChatRoleAssistant,
		Content:   reply,
		CreatedAt: time.Now().UTC(),
	}
	messages = append(messages, assistantMsg)
	if err := s.sessions.UpdateMessages(ctx, userID, sessionID, messages); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: persist assistant message: %v", ErrPersistence, err)
	}

	return assistantMsg, nil
}

// StreamTurn es un turno streaming ya validado: la sesión pertenece al
// usuario, su mensaje quedó persistido y el lock de la sesión está tomado
// hasta que Run termine.
type StreamTurn struct {
	svc       *CoachService
	userID    string
	sessionID string
	system    string
	messages  []domain.ChatMessage
	unlock    func()
}

// BeginStream valida y prepara un turno streaming antes de que el caller
// comprometa la respuesta HTTP: rate limit, ownership y la persistencia del
// mensaje del usuario pasan acá, donde un fallo todavía puede viajar como
// status code. Si devuelve un turno, el caller debe invocar Run exactamente
// una vez para liberar el lock de la sesión.
func (s *CoachService) BeginStream(ctx context.Context, userID, sessionID string, incoming []domain.ChatMessage) (*StreamTurn, error) {
	sessionID = strings.TrimSpace(sessionID)
	userMessage := lastUserMessage(incoming)
	if userMessage == "" || sessionID == "" {
		return nil, ErrInvalidRequest
	}
	if s.limiter != nil && !s.limiter.Allow(userID) {
		return nil, ErrRateLimited
	}

	unlock := s.locks.acquire(userID, sessionID)

	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		unlock()
		return nil, err
	}

	userMsg := domain.ChatMessage{
		Role:      domain.ChatRoleUser,
		Content:   userMessage,
		CreatedAt: time.Now().UTC(),
	}
	messages := append(session.Messages, userMsg)
	if err := s.sessions.UpdateMessages(ctx, userID, sessionID, messages); err != nil {
		unlock()
		return nil, fmt.Errorf("%w: persist user message: %v", ErrPersistence, err)
	}

	system, err := s.buildSystemPrompt(ctx, userID)
	if err != nil {
		unlock()
		return nil, err
	}

	return &StreamTurn{
		svc:       s,
		userID:    userID,
		sessionID: sessionID,
		system:    system,
		messages:  messages,
		unlock:    unlock,
	}, nil
}

// Run reenvía cada token al sink en orden de llegada, emite el marcador
// terminal y recién entonces persiste la respuesta acumulada. Un upstream que
// falla a mitad produce un único evento de error y nada del lado assistant se
// persiste. El ctx debe estar desacoplado de la conexión del cliente: si el
// cliente se desconecta se deja de escribir al sink, pero el stream se sigue
// consumiendo y la respuesta completa se persiste igual.
func (t *StreamTurn) Run(ctx context.Context, sink StreamSink) error {
	defer t.unlock()
	s := t.svc

	llmCtx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()

	var accumulated strings.Builder
	clientGone := false
	err := s.llmClient.GenerateStream(llmCtx, t.system, toLLMMessages(t.messages), func(token string) error {
		accumulated.WriteString(token)
		if !clientGone {
			if sendErr := sink.SendToken(token); sendErr != nil {
				// Cliente desconectado: dejamos de escribir pero seguimos
				// consumiendo para poder persistir la respuesta completa.
				clientGone = true
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("llm stream failed", zap.Error(err), zap.String("session_id", t.sessionID))
		if !clientGone {
			sink.SendError("The coach is unavailable right now. Please try again.")
		}
		return ErrUpstreamUnavailable
	}

	if !clientGone {
		if err := sink.SendDone(); err != nil {
			clientGone = true
		}
	}

	assistantMsg := domain.ChatMessage{
		Role:      domain.ChatRoleAssistant,
		Content:   accumulated.String(),
		CreatedAt: time.Now().UTC(),
	}
	messages := append(t.messages, assistantMsg)
	if err := s.sessions.UpdateMessages(ctx, t.userID, t.sessionID, messages); err != nil {
		// El cliente ya recibió el stream completo; esto solo se puede loguear.
		s.logger.Error("persist assistant message after stream failed", zap.Error(err), zap.String("session_id", t.sessionID))
		return fmt.Errorf("%w: persist assistant message: %v", ErrPersistence, err)
	}
	return nil
}

// ChatStream ejecuta el turno streaming completo en un solo paso. Los callers
// que necesitan separar la validación del streaming (la capa HTTP, que tiene
// que elegir status code antes de los headers SSE) usan BeginStream + Run.
func (s *CoachService) ChatStream(ctx context.Context, userID, sessionID string, incoming []domain.ChatMessage, sink StreamSink) error {
	turn, err := s.BeginStream(ctx, userID, sessionID, incoming)
	if err != nil {
		return err
	}
	return turn.Run(ctx, sink)
}

func (s *CoachService) ownedSession(ctx context.Context, userID, sessionID string) (domain.ChatSession, error) {
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

// buildSystemPrompt hace lecturas frescas en cada turno, a propósito: el
// progreso marcado hace un segundo debe verse en este turno.
func (s *CoachService) buildSystemPrompt(ctx context.Context, userID string) (string, error) {
	chapters, err := s.chapters.List(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: list chapters: %v", ErrPersistence, err)
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: list categories: %v", ErrPersistence, err)
	}
	progress, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%w: list progress: %v", ErrPersistence, err)
	}
	return s.builder.Build(chapters, categories, progress), nil
}

func toLLMMessages(messages []domain.ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func lastUserMessage(messages []domain.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.ChatRoleUser {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}
