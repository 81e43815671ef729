package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coach-llm/internal/service"
)

// UserHandler expone registro, login y refresh de tokens.
type UserHandler struct {
	logger *zap.Logger
	users  *service.UserService
	jwtSvc *service.JWTService
}

func NewUserHandler(logger *zap.Logger, users *service.UserService, jwtSvc *service.JWTService) *UserHandler {
	return &UserHandler{logger: logger, users: users, jwtSvc: jwtSvc}
}

// Register maneja POST /api/auth/register.
func (h *UserHandler) Register(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required,email"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		h.logger.Warn("register failed", zap.Error(err))
		respondError(c, err)
		return
	}

	pair, err := h.jwtSvc.GeneratePair(user)
	if err != nil {
		h.logger.Error("token generation failed", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user, "tokens": pair})
}

// Login maneja POST /api/auth/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	pair, err := h.jwtSvc.GeneratePair(user)
	if err != nil {
		h.logger.Error("token generation failed", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "tokens": pair})
}

// Refresh maneja POST /api/auth/refresh.
func (h *UserHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	pair, err := h.jwtSvc.RefreshPair(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": pair})
}

// Me maneja GET /api/me.
func (h *UserHandler) Me(c *gin.Context) {
	claims, _ := GetAuthClaims(c)
	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
