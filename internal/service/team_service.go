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
	"coach-llm/internal/email"
	"coach-llm/internal/repository"
)

// TeamService maneja miembros e invitaciones por email.
type TeamService struct {
	logger     *zap.Logger
	users      repository.UserRepository
	invites    repository.InviteRepository
	sender     email.Sender
	appBaseURL string
}

func NewTeamService(
	logger *zap.Logger,
	users repository.UserRepository,
	invites repository.InviteRepository,
	sender email.Sender,
	appBaseURL string,
) *TeamService {
	return &TeamService{
		logger:     logger,
		users:      users,
		invites:    invites,
		sender:     sender,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
	}
}

// ListMembers devuelve todos los usuarios del equipo.
func (s *TeamService) ListMembers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", ErrPersistence, err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// Invite persiste la invitación y manda el correo. Un fallo de SMTP se loguea
// pero no invalida la invitación ya creada.
func (s *TeamService) Invite(ctx context.Context, inviter domain.User, inviteeEmail, role string) (domain.TeamInvite, error) {
	inviteeEmail = strings.ToLower(strings.TrimSpace(inviteeEmail))
	if inviteeEmail == "" || !strings.Contains(inviteeEmail, "@") {
		return domain.TeamInvite{}, ErrInvalidRequest
	}
	role = strings.TrimSpace(role)
	if role == "" {
		role = domain.RoleMember
	}
	if role != domain.RoleMember && role != domain.RoleAdmin {
		return domain.TeamInvite{}, ErrInvalidRequest
	}

	invite := domain.TeamInvite{
		ID:        uuid.NewString(),
		Email:     inviteeEmail,
		Role:      role,
		InvitedBy: inviter.ID,
		Status:    domain.InviteStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		return domain.TeamInvite{}, fmt.Errorf("%w: create invite: %v", ErrPersistence, err)
	}

	acceptURL := fmt.Sprintf("%s/invites/%s", s.appBaseURL, invite.ID)
	if err := s.sender.SendTeamInvite(ctx, inviteeEmail, inviter.DisplayName, acceptURL); err != nil {
		s.logger.Warn("invite email failed", zap.Error(err), zap.String("invite_id", invite.ID))
	}
	return invite, nil
}

// Accept marca la invitación como aceptada.
func (s *TeamService) Accept(ctx context.Context, inviteID string) (domain.TeamInvite, error) {
	inviteID = strings.TrimSpace(inviteID)
	if inviteID == "" {
		return domain.TeamInvite{}, ErrInvalidRequest
	}
	invite, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TeamInvite{}, ErrNotFound
		}
		return domain.TeamInvite{}, fmt.Errorf("%w: get invite: %v", ErrPersistence, err)
	}
	if invite.Status == domain.InviteStatusAccepted {
		return invite, nil
	}
	if err := s.invites.SetStatus(ctx, inviteID, domain.InviteStatusAccepted); err != nil {
		return domain.TeamInvite{}, fmt.Errorf("%w: accept invite: %v", ErrPersistence, err)
	}
	invite.Status = domain.InviteStatusAccepted
	return invite, nil
}

// ListInvites devuelve el historial de invitaciones.
func (s *TeamService) ListInvites(ctx context.Context) ([]domain.TeamInvite, error) {
	invites, err := s.invites.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list invites: %v", ErrPersistence, err)
	}
	if invites == nil {
		invites = []domain.TeamInvite{}
	}
	return invites, nil
}
