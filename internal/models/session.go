package models

import (
	"time"

	"github.com/google/uuid"
)

// Session maps the hash of an opaque session token to a user id. Only the
// Postgres session backend uses this table.
type Session struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TokenHash string    `gorm:"uniqueIndex;not null;size:64" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
