package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"coach-llm/internal/config"
	"coach-llm/internal/db"
	"coach-llm/internal/llm"
	"coach-llm/internal/repository"
	"coach-llm/internal/service"
)

// REPL de consola contra el coach, útil para probar prompts sin levantar
// el server HTTP.
func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	categoryRepo := repository.NewPgCategoryRepository(pool)
	chapterRepo := repository.NewPgChapterRepository(pool)
	progressRepo := repository.NewPgProgressRepository(pool)
	sessionRepo := repository.NewPgChatSessionRepository(pool)

	var llmClient llm.Client
	if cfg.LLMAPIKey != "" {
		llmClient = llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMEmbedModel, logger)
	} else {
		fmt.Println("LLM_API_KEY not set, using canned responses.")
		llmClient = llm.NewMockClient()
	}

	builder := service.NewCoachPromptBuilder("")
	coach := service.NewCoachService(logger, llmClient, sessionRepo, chapterRepo, categoryRepo, progressRepo, builder, nil)
	sessions := service.NewSessionService(logger, sessionRepo, llmClient)

	fmt.Print("user id: ")
	userID, _ := reader.ReadString('\n')
	userID = strings.TrimSpace(userID)
	if userID == "" {
		log.Fatal("user id is required")
	}

	session, err := sessions.Create(ctx, userID, "CLI session", "")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("session %s created. Type your message, or /quit to exit.\n", session.ID)

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/quit" {
			return
		}

		reply, err := coach.Chat(ctx, userID, session.ID, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Println(reply.Content)
	}
}
