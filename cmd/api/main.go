package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"coach-llm/internal/config"
	"coach-llm/internal/db"
	"coach-llm/internal/email"
	apihttp "coach-llm/internal/http"
	"coach-llm/internal/llm"
	"coach-llm/internal/repository"
	"coach-llm/internal/service"
	"coach-llm/internal/speech"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	categoryRepo := repository.NewPgCategoryRepository(pool)
	chapterRepo := repository.NewPgChapterRepository(pool)
	progressRepo := repository.NewPgProgressRepository(pool)
	sessionRepo := repository.NewPgChatSessionRepository(pool)
	shareRepo := repository.NewPgShareRepository(pool)
	inviteRepo := repository.NewPgInviteRepository(pool)

	// Selección de adaptadores una sola vez al arranque: sin API key se usan
	// las variantes canned/deshabilitadas, nunca null-checks en la lógica.
	var llmClient llm.Client
	var synthesizer speech.Synthesizer
	if cfg.LLMAPIKey != "" {
		llmClient = llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMEmbedModel, logger)
		synthesizer = speech.NewHTTPSynthesizer(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.SpeechModel, cfg.SpeechVoice, logger)
	} else {
		logger.Warn("llm api key not configured, using mock client")
		llmClient = llm.NewMockClient()
		synthesizer = speech.NewDisabledSynthesizer("speech api key not configured")
	}

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		chatLimiter service.ChatRateLimiter
		tokenStore  service.RefreshTokenStore
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			chatLimiter = service.NewRedisChatRateLimiter(redisClient, time.Minute, 20)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
		}
		cancel()
	}
	if chatLimiter == nil {
		chatLimiter = service.NewChatRateLimiter(time.Minute, 20)
	}

	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)

	promptBuilder := service.NewCoachPromptBuilder("")
	coachSvc := service.NewCoachService(logger, llmClient, sessionRepo, chapterRepo, categoryRepo, progressRepo, promptBuilder, chatLimiter)
	sessionSvc := service.NewSessionService(logger, sessionRepo, llmClient)
	userSvc := service.NewUserService(logger, userRepo)
	contentSvc := service.NewContentService(logger, categoryRepo, chapterRepo, llmClient)
	progressSvc := service.NewProgressService(progressRepo, chapterRepo)
	audioSvc := service.NewAudioService(logger, synthesizer, chapterRepo, cfg.MediaDir, cfg.MediaBaseURL)
	shareSvc := service.NewShareService(shareRepo, chapterRepo)
	teamSvc := service.NewTeamService(logger, userRepo, inviteRepo, emailSender, cfg.AppBaseURL)
	analyticsSvc := service.NewAnalyticsService(userRepo, chapterRepo, progressRepo)

	userHandler := apihttp.NewUserHandler(logger, userSvc, jwtSvc)
	chatHandler := apihttp.NewChatHandler(logger, coachSvc, sessionSvc)
	contentHandler := apihttp.NewContentHandler(logger, contentSvc, shareSvc)
	progressHandler := apihttp.NewProgressHandler(progressSvc)
	teamHandler := apihttp.NewTeamHandler(logger, teamSvc, userSvc)
	adminHandler := apihttp.NewAdminHandler(logger, contentSvc, audioSvc, analyticsSvc)

	router := apihttp.NewRouter(logger, jwtSvc, userHandler, chatHandler, contentHandler, progressHandler, teamHandler, adminHandler, cfg.MediaDir)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
