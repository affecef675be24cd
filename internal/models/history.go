package models

import (
	"time"

	"github.com/google/uuid"
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// HistoryRecord is one persisted chat message. Records are append-only;
// Timestamp is assigned by the store, never by the caller.
type HistoryRecord struct {
	ID        uuid.UUID `db:"id"`
	UserID    string    `db:"user_id"`
	Sender    Sender    `db:"sender"`
	Text      string    `db:"text"`
	Timestamp time.Time `db:"created_at"`
}
