package model

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID              uuid.UUID `db:"id" json:"id"`
	RecipientUserID uuid.UUID `db:"recipient_user_id" json:"recipient_user_id"`
	Content         string    `db:"content" json:"content"`
	Read            bool      `db:"read" json:"read"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// NotificationEvent is published on the broker so connected clients
// can surface new notices without polling.
type NotificationEvent struct {
	ID              uuid.UUID `json:"id"`
	RecipientUserID uuid.UUID `json:"recipient_user_id"`
	Content         string    `json:"content"`
	CreatedAt       time.Time `json:"created_at"`
}
