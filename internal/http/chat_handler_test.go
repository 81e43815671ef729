package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coach-llm/internal/domain"
	"coach-llm/internal/llm"
	"coach-llm/internal/service"
)

func newChatTestRouter(t *testing.T, client llm.Client, sessions *fakeSessionRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	chapters := &fakeChapterRepo{chapters: []domain.Chapter{
		{ID: "ch-1", CategoryID: "cat-1", Title: "Letting Go", Slug: "letting-go", Content: "Delegate outcomes."},
	}}
	coach := service.NewCoachService(logger, client, sessions, chapters, &fakeCategoryRepo{}, &fakeProgressRepo{}, service.NewCoachPromptBuilder(""), nil)
	sessionSvc := service.NewSessionService(logger, sessions, client)
	handler := NewChatHandler(logger, coach, sessionSvc)

	r := gin.New()
	authed := r.Group("/api", asUser("u-1"))
	authed.POST("/chat", handler.Chat)
	authed.POST("/chat/stream", handler.ChatStream)
	authed.POST("/chat/session", handler.CreateSession)
	authed.GET("/chat/sessions", handler.ListSessions)
	authed.GET("/chat/history/:sessionId", handler.History)
	authed.PUT("/chat/session/:sessionId", handler.RenameSession)
	authed.DELETE("/chat/session/:sessionId", handler.DeleteSession)
	authed.POST("/chat/session/:sessionId/generate-name", handler.GenerateSessionName)
	return r
}

var errTest = errors.New("upstream down")

func seedOwnedSession(repo *fakeSessionRepo, userID, sessionID string) {
	_ = repo.Create(context.Background(), domain.ChatSession{
		ID:        sessionID,
		UserID:    userID,
		Name:      "New conversation",
		CreatedAt: time.Now().UTC(),
	})
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestChatEndpointReturnsReply(t *testing.T) {
	sessions := newFakeSessionRepo()
	seedOwnedSession(sessions, "u-1", "s-1")
	client := llm.NewMockClient()
	client.Response = "Delegate outcomes, not tasks."
	r := newChatTestRouter(t, client, sessions)

	rec := postJSON(t, r, "/api/chat", gin.H{"message": "how do I delegate?", "sessionId": "s-1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["message"] != client.Response {
		t.Errorf("unexpected body: %v", resp)
	}
}

func TestChatStreamWireFormat(t *testing.T) {
	sessions := newFakeSessionRepo()
	seedOwnedSession(sessions, "u-1", "s-1")
	client := llm.NewMockClient()
	client.Tokens = []string{"Hello", " world"}
	r := newChatTestRouter(t, client, sessions)

	rec := postJSON(t, r, "/api/chat/stream", gin.H{
		"sessionId": "s-1",
		"messages":  []gin.H{{"role": "user", "content": "say hi"}},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("wrong content type %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("wrong cache control %q", cc)
	}

	want := "data: {\"token\":\"Hello\"}\n\ndata: {\"token\":\" world\"}\n\ndata: [DONE]\n\n"
	if rec.Body.String() != want {
		t.Errorf("wire format mismatch:\ngot  %q\nwant %q", rec.Body.String(), want)
	}

	stored := sessions.stored("s-1").Messages
	if len(stored) != 2 || stored[1].Content != "Hello world" {
		t.Errorf("assistant message not persisted after stream: %+v", stored)
	}
}

func TestChatStreamUpstreamFailureEmitsErrorEvent(t *testing.T) {
	sessions := newFakeSessionRepo()
	seedOwnedSession(sessions, "u-1", "s-1")
	client := llm.NewMockClient()
	client.Tokens = []string{"partial"}
	client.StreamErr = errTest
	r := newChatTestRouter(t, client, sessions)

	rec := postJSON(t, r, "/api/chat/stream", gin.H{
		"sessionId": "s-1",
		"messages":  []gin.H{{"role": "user", "content": "say hi"}},
	})

	body := rec.Body.String()
	if strings.Count(body, "\"error\"") != 1 {
		t.Errorf("exactly one error event expected, got:\n%s", body)
	}
	if strings.Contains(body, "[DONE]") {
		t.Errorf("no terminal marker after a failed stream:\n%s", body)
	}
	stored := sessions.stored("s-1").Messages
	if len(stored) != 1 || stored[0].Role != domain.ChatRoleUser {
		t.Errorf("only the user message may be persisted, got %+v", stored)
	}
}

func TestChatStreamValidation(t *testing.T) {
	sessions := newFakeSessionRepo()
	seedOwnedSession(sessions, "u-1", "s-1")
	r := newChatTestRouter(t, llm.NewMockClient(), sessions)

	rec := postJSON(t, r, "/api/chat/stream", gin.H{"sessionId": "s-1", "messages": []gin.H{}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty messages must 400 before any SSE bytes, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("validation failures must not switch to SSE, got %q", ct)
	}
}

func TestChatStreamOwnershipRejectedBeforeStreaming(t *testing.T) {
	sessions := newFakeSessionRepo()
	seedOwnedSession(sessions, "someone-else", "foreign")
	r := newChatTestRouter(t, llm.NewMockClient(), sessions)

	rec := postJSON(t, r, "/api/chat/stream", gin.H{
		"sessionId": "foreign",
		"messages":  []gin.H{{"role": "user", "content": "hi"}},
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign session must 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("rejected stream must answer JSON, got %q", ct)
	}
	if got := sessions.stored("foreign").Messages; len(got) != 0 {
		t.Errorf("nothing may be persisted on a foreign session, got %+v", got)
	}

	rec = postJSON(t, r, "/api/chat/stream", gin.H{
		"sessionId": "missing",
		"messages":  []gin.H{{"role": "user", "content": "hi"}},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("absent session must 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

// gatedStreamClient emite un primer token, espera a que el test lo libere y
// recién entonces completa el stream. Permite cortar la conexión del cliente
// con la respuesta a medio emitir.
type gatedStreamClient struct {
	llm.MockClient
	release chan struct{}
}

func (g *gatedStreamClient) GenerateStream(_ context.Context, _ string, _ []llm.Message, onToken func(token string) error) error {
	if err := onToken("Hello"); err != nil {
		return err
	}
	<-g.release
	if err := onToken(" world"); err != nil {
		return err
	}
	return nil
}

func TestChatStreamClientDisconnectStillPersistsReply(t *testing.T) {
	sessions := newFakeSessionRepo()
	seedOwnedSession(sessions, "u-1", "s-1")
	client := &gatedStreamClient{MockClient: *llm.NewMockClient(), release: make(chan struct{})}
	r := newChatTestRouter(t, client, sessions)

	srv := httptest.NewServer(r)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/chat/stream",
		strings.NewReader(`{"sessionId":"s-1","messages":[{"role":"user","content":"hi"}]}`))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil || !strings.Contains(line, "Hello") {
		t.Fatalf("first event not received: %q %v", line, err)
	}

	// Se corta la conexión con el stream a medio emitir.
	resp.Body.Close()
	close(client.release)

	deadline := time.Now().Add(2 * time.Second)
	for {
		got := sessions.stored("s-1").Messages
		if len(got) == 2 {
			if got[1].Role != domain.ChatRoleAssistant || got[1].Content != "Hello world" {
				t.Fatalf("unexpected persisted reply: %+v", got[1])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("reply was not persisted after the disconnect, got %+v", got)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSessionLifecycleEndpoints(t *testing.T) {
	sessions := newFakeSessionRepo()
	r := newChatTestRouter(t, llm.NewMockClient(), sessions)

	rec := postJSON(t, r, "/api/chat/session", gin.H{"name": "Delegation help"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	sessionID := created["id"]
	if sessionID == "" || created["name"] != "Delegation help" {
		t.Fatalf("unexpected create response: %v", created)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chat/sessions", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), sessionID) {
		t.Errorf("listing must include the new session: %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/chat/session/"+sessionID, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("delete failed: %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/chat/history/"+sessionID, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("history of a deleted session must 404, got %d", rec.Code)
	}
}

func TestHistoryOwnershipStatusCodes(t *testing.T) {
	sessions := newFakeSessionRepo()
	seedOwnedSession(sessions, "someone-else", "foreign")
	r := newChatTestRouter(t, llm.NewMockClient(), sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history/foreign", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign session must 403, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/chat/history/missing", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("absent session must 404, got %d", rec.Code)
	}
}

func TestGenerateNameRejectsEmptyHistory(t *testing.T) {
	sessions := newFakeSessionRepo()
	seedOwnedSession(sessions, "u-1", "s-1")
	r := newChatTestRouter(t, llm.NewMockClient(), sessions)

	rec := postJSON(t, r, "/api/chat/session/s-1/generate-name", gin.H{"messages": []gin.H{}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty history must 400, got %d: %s", rec.Code, rec.Body.String())
	}
}
