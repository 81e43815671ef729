package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"coach-llm/internal/domain"
)

// InviteRepository define el contrato de persistencia para invitaciones de equipo.
type InviteRepository interface {
	Create(ctx context.Context, invite domain.TeamInvite) error
	GetByID(ctx context.Context, id string) (domain.TeamInvite, error)
	SetStatus(ctx context.Context, id, status string) error
	List(ctx context.Context) ([]domain.TeamInvite, error)
}

type PgInviteRepository struct {
	pool *pgxpool.Pool
}

func NewPgInviteRepository(pool *pgxpool.Pool) *PgInviteRepository {
	return &PgInviteRepository{pool: pool}
}

func (r *PgInviteRepository) Create(ctx context.Context, invite domain.TeamInvite) error {
	const query = `
		INSERT INTO team_invites (id, email, role, invited_by, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		invite.ID,
		invite.Email,
		invite.Role,
		invite.InvitedBy,
		invite.Status,
		invite.CreatedAt,
	)
	return err
}

func (r *PgInviteRepository) GetByID(ctx context.Context, id string) (domain.TeamInvite, error) {
	const query = `
		SELECT id, email, role, invited_by, status, created_at
		FROM team_invites
		WHERE id = $1
	`
	var inv domain.TeamInvite
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&inv.ID,
		&inv.Email,
		&inv.Role,
		&inv.InvitedBy,
		&inv.Status,
		&inv.CreatedAt,
	)
	if err != nil {
		return domain.TeamInvite{}, err
	}
	return inv, nil
}

func (r *PgInviteRepository) SetStatus(ctx context.Context, id, status string) error {
	const query = `UPDATE team_invites SET status = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, status)
	return err
}

func (r *PgInviteRepository) List(ctx context.Context) ([]domain.TeamInvite, error) {
	const query = `
		SELECT id, email, role, invited_by, status, created_at
		FROM team_invites
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []domain.TeamInvite
	for rows.Next() {
		var inv domain.TeamInvite
		if err := rows.Scan(&inv.ID, &inv.Email, &inv.Role, &inv.InvitedBy, &inv.Status, &inv.CreatedAt); err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}
