package repository

import (
	"context"

	"bracescarebot/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresHistoryStore keeps chat history in a chat_history table.
// created_at defaults to now() in the database, so ordering follows the
// server clock rather than the clients'.
type PostgresHistoryStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresHistoryStore(db *pgxpool.Pool, logger *zap.Logger) *PostgresHistoryStore {
	return &PostgresHistoryStore{
		db:     db,
		logger: logger,
	}
}

func (r *PostgresHistoryStore) Append(ctx context.Context, record *models.HistoryRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	query := squirrel.Insert("chat_history").
		Columns("id", "user_id", "sender", "text").
		Values(record.ID, record.UserID, string(record.Sender), record.Text).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *PostgresHistoryStore) ListRecent(ctx context.Context, userID string, limit int) ([]*models.HistoryRecord, error) {
	query := squirrel.Select("id", "user_id", "sender", "text", "created_at").
		From("chat_history").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.HistoryRecord
	for rows.Next() {
		var rec models.HistoryRecord
		var sender string
		if err := rows.Scan(&rec.ID, &rec.UserID, &sender, &rec.Text, &rec.Timestamp); err != nil {
			return nil, err
		}
		rec.Sender = models.Sender(sender)
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Close releases the underlying connection pool.
func (r *PostgresHistoryStore) Close() error {
	r.db.Close()
	return nil
}
