package domain

import "time"

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage vive embebido dentro de la sesión; el orden del slice es el
// orden de la conversación y debe preservarse en cada lectura/escritura.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSession es un hilo de conversación con el coach, propiedad exclusiva
// de un usuario. Los mensajes se persisten como un único documento.
type ChatSession struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Name      string        `json:"name"`
	Summary   string        `json:"summary,omitempty"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SessionSummary es la vista reducida para listados (sin mensajes).
type SessionSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Summary string `json:"summary,omitempty"`
}
