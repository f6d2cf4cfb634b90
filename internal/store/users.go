package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiteboard/kiteboard-backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicate   = errors.New("unique constraint violated")
	ErrUnavailable = errors.New("store unavailable")
)

// ExternalField names the per-provider subject column on users.
type ExternalField string

const (
	FieldGoogleID ExternalField = "google_id"
	FieldGitHubID ExternalField = "github_id"
)

// UserStore is the persistence boundary the auth core depends on.
type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByExternalID(ctx context.Context, field ExternalField, subject string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// GormUserStore keeps users in any gorm dialect opened with TranslateError.
type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *GormUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.first(ctx, "username = ?", username)
}

func (s *GormUserStore) FindByExternalID(ctx context.Context, field ExternalField, subject string) (*models.User, error) {
	switch field {
	case FieldGoogleID, FieldGitHubID:
	default:
		return nil, fmt.Errorf("unknown external id field %q", field)
	}
	return s.first(ctx, string(field)+" = ?", subject)
}

func (s *GormUserStore) Create(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, models.ErrUserIncomplete) {
			return err
		}
		return classify(err)
	}
	return nil
}

func (s *GormUserStore) first(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, classify(err)
	}
	return &user, nil
}

// classify folds driver errors into the store taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
