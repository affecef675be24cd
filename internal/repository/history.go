package repository

import (
	"context"

	"bracescarebot/internal/models"
)

// HistoryStore persists chat messages for users that opted in. Every
// implementation assigns record timestamps itself (server side); callers
// never supply one. Store failures are always non-fatal to the serving path.
type HistoryStore interface {
	Append(ctx context.Context, record *models.HistoryRecord) error
	ListRecent(ctx context.Context, userID string, limit int) ([]*models.HistoryRecord, error)
}
