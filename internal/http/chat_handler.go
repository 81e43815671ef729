package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coach-llm/internal/domain"
	"coach-llm/internal/service"
)

// ChatHandler expone los endpoints del coach: turnos, streaming y ciclo de
// vida de sesiones.
type ChatHandler struct {
	logger   *zap.Logger
	coach    *service.CoachService
	sessions *service.SessionService
}

func NewChatHandler(logger *zap.Logger, coach *service.CoachService, sessions *service.SessionService) *ChatHandler {
	return &ChatHandler{
		logger:   logger,
		coach:    coach,
		sessions: sessions,
	}
}

type messagePayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat maneja POST /api/chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	claims, _ := GetAuthClaims(c)

	var req struct {
		Message   string `json:"message"`
		SessionID string `json:"sessionId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	reply, err := h.coach.Chat(c.Request.Context(), claims.UserID, req.SessionID, req.Message)
	if err != nil {
		h.logger.Warn("chat turn failed", zap.Error(err), zap.String("session_id", req.SessionID))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": reply.Content})
}

// ChatStream maneja POST /api/chat/stream y responde text/event-stream.
// Validación, rate limit y ownership se resuelven antes de enviar headers,
// mientras todavía se puede responder un status code; una vez comprometido el
// stream, los fallos solo pueden viajar como evento {"error": ...}.
func (h *ChatHandler) ChatStream(c *gin.Context) {
	claims, _ := GetAuthClaims(c)

	var req struct {
		Messages  []messagePayload `json:"messages"`
		SessionID string           `json:"sessionId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if len(req.Messages) == 0 || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	incoming := make([]domain.ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		incoming = append(incoming, domain.ChatMessage{Role: m.Role, Content: m.Content})
	}

	turn, err := h.coach.BeginStream(c.Request.Context(), claims.UserID, req.SessionID, incoming)
	if err != nil {
		h.logger.Warn("chat stream rejected", zap.Error(err), zap.String("session_id", req.SessionID))
		respondError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	// El ctx del request muere cuando el cliente corta; el turno se corre
	// desacoplado para que la respuesta acumulada se persista igual.
	sink := newSSESink(c.Writer)
	if err := turn.Run(context.WithoutCancel(c.Request.Context()), sink); err != nil {
		// El stream ya terminó (con evento de error o no); solo log.
		h.logger.Warn("chat stream failed", zap.Error(err), zap.String("session_id", req.SessionID))
	}
}

// CreateSession maneja POST /api/chat/session.
func (h *ChatHandler) CreateSession(c *gin.Context) {
	claims, _ := GetAuthClaims(c)

	var req struct {
		Name    string `json:"name"`
		Summary string `json:"summary"`
	}
	// Body vacío es válido: se usan defaults.
	_ = c.ShouldBindJSON(&req)

	session, err := h.sessions.Create(c.Request.Context(), claims.UserID, req.Name, req.Summary)
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":      session.ID,
		"name":    session.Name,
		"summary": session.Summary,
	})
}

// ListSessions maneja GET /api/chat/sessions.
func (h *ChatHandler) ListSessions(c *gin.Context) {
	claims, _ := GetAuthClaims(c)

	sessions, err := h.sessions.List(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// History maneja GET /api/chat/history/:sessionId.
func (h *ChatHandler) History(c *gin.Context) {
	claims, _ := GetAuthClaims(c)

	messages, err := h.sessions.History(c.Request.Context(), claims.UserID, c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// RenameSession maneja PUT /api/chat/session/:sessionId.
func (h *ChatHandler) RenameSession(c *gin.Context) {
	claims, _ := GetAuthClaims(c)

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.sessions.Rename(c.Request.Context(), claims.UserID, c.Param("sessionId"), req.Name); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": req.Name})
}

// DeleteSession maneja DELETE /api/chat/session/:sessionId.
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	claims, _ := GetAuthClaims(c)

	if err := h.sessions.Delete(c.Request.Context(), claims.UserID, c.Param("sessionId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// GenerateSessionName maneja POST /api/chat/session/:sessionId/generate-name.
func (h *ChatHandler) GenerateSessionName(c *gin.Context) {
	claims, _ := GetAuthClaims(c)

	var req struct {
		Messages []messagePayload `json:"messages"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	messages := make([]domain.ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, domain.ChatMessage{Role: m.Role, Content: m.Content})
	}

	name, err := h.sessions.GenerateName(c.Request.Context(), claims.UserID, c.Param("sessionId"), messages)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name})
}

// sseSink escribe eventos Server-Sent Events sobre la respuesta HTTP.
// Formato de línea: "data: <json>\n\n"; el terminal es "data: [DONE]\n\n".
type sseSink struct {
	writer  gin.ResponseWriter
	flusher http.Flusher
}

func newSSESink(w gin.ResponseWriter) *sseSink {
	flusher, _ := w.(http.Flusher)
	return &sseSink{writer: w, flusher: flusher}
}

func (s *sseSink) SendToken(token string) error {
	payload, err := json.Marshal(gin.H{"token": token})
	if err != nil {
		return err
	}
	return s.writeEvent(string(payload))
}

func (s *sseSink) SendDone() error {
	return s.writeEvent("[DONE]")
}

func (s *sseSink) SendError(msg string) {
	payload, err := json.Marshal(gin.H{"error": msg})
	if err != nil {
		return
	}
	// Fallos de escritura sobre una conexión cerrada se tragan acá.
	_ = s.writeEvent(string(payload))
}

func (s *sseSink) writeEvent(data string) error {
	if _, err := fmt.Fprintf(s.writer, "data: %s\n\n", data); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

var _ service.StreamSink = (*sseSink)(nil)
