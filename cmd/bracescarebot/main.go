package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"bracescarebot/internal/api"
	"bracescarebot/internal/api/handlers"
	"bracescarebot/internal/knowledge"
	"bracescarebot/internal/repository"
	"bracescarebot/internal/service"
	"bracescarebot/pkg/config"
	"bracescarebot/pkg/logger"
	"bracescarebot/pkg/postgres"

	"go.uber.org/zap"
)

// @title BracesCareBot API
// @version 1.0
// @description Conversational assistant for orthodontic care questions, backed by a curated knowledge base and a hosted language model

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting BracesCareBot service")

	// Knowledge base is the one dependency the service refuses to run
	// without: a missing or corrupt corpus is a startup failure.
	kb, err := knowledge.Load(cfg.Knowledge.Path)
	if err != nil {
		appLogger.Fatal("Failed to load knowledge base", zap.Error(err))
	}
	appLogger.Info("Knowledge base loaded",
		zap.String("path", cfg.Knowledge.Path),
		zap.Int("entries", kb.Len()),
	)

	safetyFilter := service.NewSafetyFilter()
	promptBuilder := service.NewPromptBuilder()

	llmService, err := service.NewLLMService(&cfg.GigaChat, promptBuilder.SystemInstructions(), appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize LLM service", zap.Error(err))
	}
	defer llmService.Close()

	// History persistence is optional: missing configuration or an
	// unreachable backend only disables it, never stops the service.
	ctx := context.Background()
	historyStore := newHistoryStore(ctx, cfg, appLogger)
	if closer, ok := historyStore.(io.Closer); ok {
		defer closer.Close()
	}

	chatService := service.NewChatService(kb, safetyFilter, promptBuilder, llmService, historyStore, cfg, appLogger)
	chatHandler := handlers.NewChatHandler(chatService, appLogger)

	app := api.SetupRouter(chatHandler, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}

// newHistoryStore picks a backend from configuration: Firestore when a
// project is set, Postgres when a database host is set, otherwise nil
// (persistence disabled).
func newHistoryStore(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) repository.HistoryStore {
	if !cfg.History.Enabled() {
		appLogger.Info("No history store configured, chat history will not be saved")
		return nil
	}

	if cfg.History.FirestoreProject != "" {
		store, err := repository.NewFirestoreHistoryStore(ctx, cfg.History.FirestoreProject, appLogger)
		if err != nil {
			appLogger.Warn("Firestore initialization failed, chat history will not be saved", zap.Error(err))
			return nil
		}
		return store
	}

	db, err := postgres.NewPool(ctx, &cfg.History.Database, appLogger)
	if err != nil {
		appLogger.Warn("History database unreachable, chat history will not be saved", zap.Error(err))
		return nil
	}
	return repository.NewPostgresHistoryStore(db, appLogger)
}
