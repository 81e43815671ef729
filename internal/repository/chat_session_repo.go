package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"coach-llm/internal/domain"
)

// ChatSessionRepository define el contrato de persistencia para sesiones de chat.
// Los mensajes viven como un documento JSONB en la fila de la sesión, así que
// cada escritura de la lista es un upsert atómico de una sola fila.
type ChatSessionRepository interface {
	Create(ctx context.Context, session domain.ChatSession) error
	GetByID(ctx context.Context, id string) (domain.ChatSession, error)
	ListByUser(ctx context.Context, userID string) ([]domain.SessionSummary, error)
	UpdateMessages(ctx context.Context, userID, id string, messages []domain.ChatMessage) error
	Rename(ctx context.Context, userID, id, name string) error
	Delete(ctx context.Context, userID, id string) (bool, error)
}

type PgChatSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatSessionRepository(pool *pgxpool.Pool) *PgChatSessionRepository {
	return &PgChatSessionRepository{pool: pool}
}

func (r *PgChatSessionRepository) Create(ctx context.Context, session domain.ChatSession) error {
	const query = `
		INSERT INTO chat_sessions (id, user_id, name, summary, messages, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	payload, err := encodeMessages(session.Messages)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Name,
		session.Summary,
		payload,
		session.CreatedAt,
		session.UpdatedAt,
	)
	return err
}

func (r *PgChatSessionRepository) GetByID(ctx context.Context, id string) (domain.ChatSession, error) {
	const query = `
		SELECT id, user_id, name, summary, messages, created_at, updated_at
		FROM chat_sessions
		WHERE id = $1
	`
	var s domain.ChatSession
	var payload []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&s.Name,
		&s.Summary,
		&payload,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return domain.ChatSession{}, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &s.Messages); err != nil {
			return domain.ChatSession{}, fmt.Errorf("decode messages: %w", err)
		}
	}
	return s, nil
}

func (r *PgChatSessionRepository) ListByUser(ctx context.Context, userID string) ([]domain.SessionSummary, error) {
	const query = `
		SELECT id, name, summary
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.SessionSummary
	for rows.Next() {
		var s domain.SessionSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Summary); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// UpdateMessages reemplaza la lista completa de mensajes en una sola escritura.
func (r *PgChatSessionRepository) UpdateMessages(ctx context.Context, userID, id string, messages []domain.ChatMessage) error {
	const query = `
		UPDATE chat_sessions
		SET messages = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
	`
	payload, err := encodeMessages(messages)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query, id, userID, payload)
	return err
}

func (r *PgChatSessionRepository) Rename(ctx context.Context, userID, id, name string) error {
	const query = `
		UPDATE chat_sessions
		SET name = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
	`
	_, err := r.pool.Exec(ctx, query, id, userID, name)
	return err
}

// Delete devuelve false cuando la sesión no existía para ese usuario.
func (r *PgChatSessionRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	const query = `DELETE FROM chat_sessions WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func encodeMessages(messages []domain.ChatMessage) ([]byte, error) {
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	payload, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("encode messages: %w", err)
	}
	return payload, nil
}
