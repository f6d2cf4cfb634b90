package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kiteboard/kiteboard-backend/internal/dto"
	"github.com/kiteboard/kiteboard-backend/internal/models"
	"github.com/kiteboard/kiteboard-backend/internal/observability"
	"github.com/kiteboard/kiteboard-backend/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound             = errors.New("user not found")
	ErrInvalidCredentials       = errors.New("incorrect password")
	ErrAuthenticationFailed     = errors.New("authentication failed")
	ErrDuplicateUsername        = errors.New("username already taken")
	ErrMissingCredentials       = errors.New("username and password are required")
	ErrPasswordTooLong          = errors.New("password must be at most 72 bytes")
	ErrFieldTooLong             = errors.New("username and email must be at most 255 characters")
	ErrProviderTimeout          = errors.New("identity provider timed out")
	ErrProviderAssertionInvalid = errors.New("identity provider assertion invalid")
	ErrProviderNotConfigured    = errors.New("identity provider not configured")
	ErrUnknownStrategy          = errors.New("unknown authentication strategy")
	ErrStoreUnavailable         = store.ErrUnavailable
)

// AuthService registers local accounts and verifies their passwords.
type AuthService struct {
	users     store.UserStore
	cost      int
	dummyHash []byte
}

func NewAuthService(users store.UserStore, cost int) *AuthService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// Compared against when the username is unknown so both failure
	// paths spend the same bcrypt work.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("kiteboard-dummy-password"), cost)
	return &AuthService{users: users, cost: cost, dummyHash: dummy}
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		observability.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrMissingCredentials
	}
	email := strings.TrimSpace(req.Email)
	if !models.FitsColumn(username) || !models.FitsColumn(email) {
		observability.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrFieldTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		observability.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashed := string(hash)

	user := &models.User{
		Username:     &username,
		Email:        email,
		PasswordHash: &hashed,
		AuthProvider: models.ProviderLocal,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			observability.RegistrationsTotal.WithLabelValues("duplicate").Inc()
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	observability.RegistrationsTotal.WithLabelValues("created").Inc()
	return user, nil
}

// Verify checks a username/password pair. It fails with ErrUserNotFound or
// ErrInvalidCredentials; callers must not show the difference to clients.
func (s *AuthService) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	// Accounts created through a provider have no password.
	if user.PasswordHash == nil || *user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
