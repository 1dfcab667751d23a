package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a read-only view of the user directory. Account lifecycle,
// sessions and credentials are owned elsewhere.
type User struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	IsProvider bool      `db:"is_provider" json:"is_provider"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
