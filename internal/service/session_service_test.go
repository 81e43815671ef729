package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"

	"coach-llm/internal/domain"
	"coach-llm/internal/llm"
)

func newTestSessionService(client llm.Client, sessions *mockSessionRepo) *SessionService {
	return NewSessionService(zap.NewNop(), sessions, client)
}

func TestSessionCreateDefaultsName(t *testing.T) {
	sessions := newMockSessionRepo()
	svc := newTestSessionService(llm.NewMockClient(), sessions)

	session, err := svc.Create(context.Background(), "u-1", "  ", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if session.ID == "" {
		t.Error("session must get an opaque id")
	}
	if session.Name != defaultSessionName {
		t.Errorf("blank name should default, got %q", session.Name)
	}
	if session.Messages == nil || len(session.Messages) != 0 {
		t.Errorf("new session must start with an empty message list, got %v", session.Messages)
	}
}

func TestSessionListAndHistoryRoundTrip(t *testing.T) {
	sessions := newMockSessionRepo()
	svc := newTestSessionService(llm.NewMockClient(), sessions)

	created, err := svc.Create(context.Background(), "u-1", "Delegation help", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	listed, err := svc.List(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID || listed[0].Name != "Delegation help" {
		t.Errorf("unexpected listing: %+v", listed)
	}

	empty, err := svc.List(context.Background(), "someone-else")
	if err != nil {
		t.Fatalf("List empty: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("a user without sessions gets an empty slice, got %v", empty)
	}

	history, err := svc.History(context.Background(), "u-1", created.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if history == nil || len(history) != 0 {
		t.Errorf("fresh session history must be empty, got %v", history)
	}
}

func TestSessionOwnershipMatrix(t *testing.T) {
	sessions := newMockSessionRepo()
	seedSession(sessions, "owner", "s-1")
	svc := newTestSessionService(llm.NewMockClient(), sessions)

	if _, err := svc.History(context.Background(), "intruder", "s-1"); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign session should be forbidden, got %v", err)
	}
	if _, err := svc.History(context.Background(), "owner", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("absent session should be not found, got %v", err)
	}
	if err := svc.Delete(context.Background(), "intruder", "s-1"); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign delete should be forbidden, got %v", err)
	}
	if err := svc.Rename(context.Background(), "intruder", "s-1", "mine now"); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign rename should be forbidden, got %v", err)
	}
}

func TestSessionRenameAndDelete(t *testing.T) {
	sessions := newMockSessionRepo()
	seedSession(sessions, "u-1", "s-1")
	svc := newTestSessionService(llm.NewMockClient(), sessions)

	if err := svc.Rename(context.Background(), "u-1", "s-1", "  "); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("blank name should be rejected, got %v", err)
	}
	if err := svc.Rename(context.Background(), "u-1", "s-1", "Feedback practice"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if got := sessions.stored("s-1").Name; got != "Feedback practice" {
		t.Errorf("rename not persisted, got %q", got)
	}

	if err := svc.Delete(context.Background(), "u-1", "s-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(context.Background(), "u-1", "s-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete should be not found, got %v", err)
	}
}

func TestGenerateNameRequiresMessages(t *testing.T) {
	sessions := newMockSessionRepo()
	seedSession(sessions, "u-1", "s-1")
	svc := newTestSessionService(llm.NewMockClient(), sessions)

	if _, err := svc.GenerateName(context.Background(), "u-1", "s-1", nil); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty history should be rejected, got %v", err)
	}
}

func TestGenerateNameCleansLLMOutput(t *testing.T) {
	sessions := newMockSessionRepo()
	seedSession(sessions, "u-1", "s-1")
	client := llm.NewMockClient()
	client.Response = "  \"Delegation Deep Dive\"  "
	svc := newTestSessionService(client, sessions)

	messages := []domain.ChatMessage{{Role: domain.ChatRoleUser, Content: "help me delegate"}}
	name, err := svc.GenerateName(context.Background(), "u-1", "s-1", messages)
	if err != nil {
		t.Fatalf("GenerateName: %v", err)
	}
	if name != "Delegation Deep Dive" {
		t.Errorf("quotes and padding must be stripped, got %q", name)
	}
	if sessions.renamed["s-1"] != name {
		t.Error("generated name must be persisted via rename")
	}
}

func TestGenerateNameFallsBackOnLLMFailure(t *testing.T) {
	sessions := newMockSessionRepo()
	seedSession(sessions, "u-1", "s-1")
	client := llm.NewMockClient()
	client.Err = errors.New("upstream down")
	svc := newTestSessionService(client, sessions)

	messages := []domain.ChatMessage{{Role: domain.ChatRoleUser, Content: "help"}}
	name, err := svc.GenerateName(context.Background(), "u-1", "s-1", messages)
	if err != nil {
		t.Fatalf("fallback path must not fail: %v", err)
	}
	if !strings.HasPrefix(name, "Conversation ") {
		t.Errorf("expected timestamp fallback name, got %q", name)
	}
}

func TestCleanGeneratedNameCapsLength(t *testing.T) {
	long := strings.Repeat("x", maxSessionNameLength+20)
	if got := cleanGeneratedName(long); len(got) != maxSessionNameLength {
		t.Errorf("name must cap at %d, got %d", maxSessionNameLength, len(got))
	}
}

func TestRenameTruncatesMultibyteNamesSafely(t *testing.T) {
	sessions := newMockSessionRepo()
	seedSession(sessions, "u-1", "s-1")
	svc := newTestSessionService(llm.NewMockClient(), sessions)

	long := strings.Repeat("á", maxSessionNameLength+10)
	if err := svc.Rename(context.Background(), "u-1", "s-1", long); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	got := sessions.renamed["s-1"]
	if !utf8.ValidString(got) {
		t.Fatalf("stored name is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != maxSessionNameLength {
		t.Errorf("expected %d runes, got %d", maxSessionNameLength, n)
	}
	if got != strings.Repeat("á", maxSessionNameLength) {
		t.Errorf("truncation must cut on rune boundaries, got %q", got)
	}
}
