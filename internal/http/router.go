package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coach-llm/internal/service"
)

// NewRouter configura el router de Gin con middlewares y todas las rutas.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	userH *UserHandler,
	chatH *ChatHandler,
	contentH *ContentHandler,
	progressH *ProgressHandler,
	teamH *TeamHandler,
	adminH *AdminHandler,
	mediaDir string,
) *gin.Engine {
	r := gin.New()
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Audio generado se sirve como estático.
	if mediaDir != "" {
		r.Static("/media", mediaDir)
	}

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", userH.Register)
	auth.POST("/login", userH.Login)
	auth.POST("/refresh", userH.Refresh)

	// Links compartidos son públicos por diseño.
	api.GET("/shared/:token", contentH.ResolveShareLink)

	authed := api.Group("")
	authed.Use(AuthMiddleware(jwtSvc))

	authed.GET("/me", userH.Me)

	authed.POST("/chat", chatH.Chat)
	authed.POST("/chat/stream", chatH.ChatStream)
	authed.POST("/chat/session", chatH.CreateSession)
	authed.GET("/chat/sessions", chatH.ListSessions)
	authed.GET("/chat/history/:sessionId", chatH.History)
	authed.PUT("/chat/session/:sessionId", chatH.RenameSession)
	authed.DELETE("/chat/session/:sessionId", chatH.DeleteSession)
	authed.POST("/chat/session/:sessionId/generate-name", chatH.GenerateSessionName)

	authed.GET("/categories", contentH.ListCategories)
	authed.GET("/chapters", contentH.ListChapters)
	authed.GET("/chapters/search", contentH.SearchChapters)
	authed.GET("/chapters/:slug", contentH.GetChapter)
	authed.POST("/chapters/:slug/share", contentH.CreateShareLink)

	authed.POST("/progress/:chapterId", progressH.Complete)
	authed.DELETE("/progress/:chapterId", progressH.Uncomplete)
	authed.GET("/progress", progressH.List)
	authed.GET("/progress/summary", progressH.Summary)

	authed.GET("/team", teamH.ListMembers)
	authed.POST("/team/invite", teamH.Invite)
	authed.POST("/team/invite/:id/accept", teamH.AcceptInvite)
	authed.GET("/team/invites", teamH.ListInvites)

	admin := authed.Group("/admin")
	admin.Use(AdminMiddleware())
	admin.POST("/categories", adminH.CreateCategory)
	admin.PUT("/categories/:id", adminH.UpdateCategory)
	admin.DELETE("/categories/:id", adminH.DeleteCategory)
	admin.POST("/chapters", adminH.CreateChapter)
	admin.PUT("/chapters/:id", adminH.UpdateChapter)
	admin.DELETE("/chapters/:id", adminH.DeleteChapter)
	admin.POST("/chapters/reorder", adminH.ReorderChapters)
	admin.POST("/chapters/bulk-category", adminH.BulkSetCategory)
	admin.POST("/chapters/bulk-delete", adminH.BulkDeleteChapters)
	admin.POST("/chapters/:id/audio", adminH.GenerateAudio)
	admin.POST("/chapters/:id/embedding", adminH.RefreshEmbedding)
	admin.GET("/analytics/overview", adminH.AnalyticsOverview)

	return r
}
