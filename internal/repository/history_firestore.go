package repository

import (
	"context"
	"fmt"
	"time"

	"bracescarebot/internal/models"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
)

const historyCollection = "chat_history"

// FirestoreHistoryStore keeps chat history in a Firestore collection, one
// document per message. Timestamps come from firestore.ServerTimestamp.
type FirestoreHistoryStore struct {
	client *firestore.Client
	logger *zap.Logger
}

func NewFirestoreHistoryStore(ctx context.Context, projectID string, logger *zap.Logger) (*FirestoreHistoryStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	logger.Info("Firestore history store initialized", zap.String("project", projectID))

	return &FirestoreHistoryStore{
		client: client,
		logger: logger,
	}, nil
}

type firestoreRecord struct {
	UserID    string    `firestore:"user_id"`
	Sender    string    `firestore:"sender"`
	Text      string    `firestore:"text"`
	Timestamp time.Time `firestore:"created_at"`
}

func (r *FirestoreHistoryStore) Append(ctx context.Context, record *models.HistoryRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	_, err := r.client.Collection(historyCollection).Doc(record.ID.String()).Set(ctx, map[string]interface{}{
		"user_id":    record.UserID,
		"sender":     string(record.Sender),
		"text":       record.Text,
		"created_at": firestore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}

	return nil
}

func (r *FirestoreHistoryStore) ListRecent(ctx context.Context, userID string, limit int) ([]*models.HistoryRecord, error) {
	iter := r.client.Collection(historyCollection).
		Where("user_id", "==", userID).
		OrderBy("created_at", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var records []*models.HistoryRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read history records: %w", err)
		}

		var fr firestoreRecord
		if err := doc.DataTo(&fr); err != nil {
			return nil, fmt.Errorf("failed to decode history record %s: %w", doc.Ref.ID, err)
		}

		id, err := uuid.Parse(doc.Ref.ID)
		if err != nil {
			id = uuid.Nil
		}

		records = append(records, &models.HistoryRecord{
			ID:        id,
			UserID:    fr.UserID,
			Sender:    models.Sender(fr.Sender),
			Text:      fr.Text,
			Timestamp: fr.Timestamp,
		})
	}

	return records, nil
}

// Close releases the underlying Firestore client.
func (r *FirestoreHistoryStore) Close() error {
	return r.client.Close()
}
