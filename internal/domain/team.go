package domain

import "time"

const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
)

// TeamInvite es una invitación por email para unirse al equipo.
type TeamInvite struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	InvitedBy string    `json:"invited_by"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
