package email

import (
	"context"
	"errors"
)

// Sender define la interfaz para envío de invitaciones de equipo.
type Sender interface {
	SendTeamInvite(ctx context.Context, toEmail, inviterName, acceptURL string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendTeamInvite(_ context.Context, _ string, _ string, _ string) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
