package models

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Auth providers recorded on a user. Informational only: the external id
// columns are what bind a record to a delegated identity.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// MaxFieldLength is the size of the users text columns, in characters.
const MaxFieldLength = 255

var ErrUserIncomplete = errors.New("user needs a username with password or an external id")

// User is the single identity record shared by every login strategy.
// Nullable unique columns are sparse: rows lacking the value never collide.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     *string   `gorm:"size:255;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:255" json:"email"`
	PasswordHash *string   `gorm:"size:255" json:"-"`
	GoogleID     *string   `gorm:"size:255;uniqueIndex" json:"-"`
	GitHubID     *string   `gorm:"column:github_id;size:255;uniqueIndex" json:"-"`
	AuthProvider string    `gorm:"size:20;default:'local'" json:"auth_provider"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate enforces that a user can log in through at least one strategy.
func (u *User) Validate() error {
	local := u.Username != nil && *u.Username != "" && u.PasswordHash != nil && *u.PasswordHash != ""
	if local || nonEmpty(u.GoogleID) || nonEmpty(u.GitHubID) {
		return nil
	}
	return ErrUserIncomplete
}

// BeforeCreate assigns the id in process and rejects incomplete records.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return u.Validate()
}

// FitsColumn reports whether s fits a users text column.
func FitsColumn(s string) bool {
	return utf8.RuneCountInString(s) <= MaxFieldLength
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}
