package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coach-llm/internal/domain"
	"coach-llm/internal/service"
)

// TeamHandler expone miembros e invitaciones del equipo.
type TeamHandler struct {
	logger *zap.Logger
	team   *service.TeamService
	users  *service.UserService
}

func NewTeamHandler(logger *zap.Logger, team *service.TeamService, users *service.UserService) *TeamHandler {
	return &TeamHandler{logger: logger, team: team, users: users}
}

// ListMembers maneja GET /api/team.
func (h *TeamHandler) ListMembers(c *gin.Context) {
	members, err := h.team.ListMembers(c.Request.Context())
	if err != nil {
		h.logger.Error("list members failed", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// Invite maneja POST /api/team/invite.
func (h *TeamHandler) Invite(c *gin.Context) {
	claims, _ := GetAuthClaims(c)

	var req struct {
		Email string `json:"email" binding:"required,email"`
		Role  string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	// Se resuelve el usuario completo para que el correo lleve el nombre real.
	inviter, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		inviter = domain.User{ID: claims.UserID, Email: claims.Email, DisplayName: claims.DisplayName}
	}
	invite, err := h.team.Invite(c.Request.Context(), inviter, req.Email, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invite)
}

// AcceptInvite maneja POST /api/team/invite/:id/accept.
func (h *TeamHandler) AcceptInvite(c *gin.Context) {
	invite, err := h.team.Accept(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invite)
}

// ListInvites maneja GET /api/team/invites.
func (h *TeamHandler) ListInvites(c *gin.Context) {
	invites, err := h.team.ListInvites(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invites)
}
