package main

import (
	"context"
	"log"

	"bracescarebot/internal/knowledge"
	"bracescarebot/pkg/config"
	"bracescarebot/pkg/logger"
	"bracescarebot/pkg/postgres"

	"go.uber.org/zap"
)

// chat_history rows are append-only; created_at comes from the database
// clock so record ordering does not depend on client clocks.
const chatHistorySchema = `
CREATE TABLE IF NOT EXISTS chat_history (
    id         UUID PRIMARY KEY,
    user_id    TEXT NOT NULL,
    sender     TEXT NOT NULL CHECK (sender IN ('user', 'bot')),
    text       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_chat_history_user_created
    ON chat_history (user_id, created_at DESC);
`

// seed validates the knowledge corpus and provisions the optional Postgres
// history schema. It is safe to run repeatedly.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	// Validate the corpus the same way the server does at startup
	kb, err := knowledge.Load(cfg.Knowledge.Path)
	if err != nil {
		appLogger.Fatal("Knowledge base validation failed", zap.Error(err))
	}
	appLogger.Info("Knowledge base is valid",
		zap.String("path", cfg.Knowledge.Path),
		zap.Int("entries", kb.Len()),
	)

	if cfg.History.Database.Host == "" {
		appLogger.Info("No history database configured, nothing to provision")
		return
	}

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.History.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to history database", zap.Error(err))
	}
	defer db.Close()

	if _, err := db.Exec(ctx, chatHistorySchema); err != nil {
		appLogger.Fatal("Failed to provision chat_history schema", zap.Error(err))
	}

	appLogger.Info("chat_history schema provisioned")
}
