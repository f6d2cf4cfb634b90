package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiteboard/kiteboard-backend/internal/models"
	"github.com/kiteboard/kiteboard-backend/internal/store"
)

const tokenBytes = 32

// UserFinder is the slice of the user store the codec needs.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Codec turns authenticated users into opaque tokens and back.
type Codec struct {
	sessions Store
	users    UserFinder
	ttl      time.Duration
}

func NewCodec(sessions Store, users UserFinder, ttl time.Duration) *Codec {
	return &Codec{sessions: sessions, users: users, ttl: ttl}
}

// TTL is the lifetime given to new sessions.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Establish stores a fresh session for user and returns its token.
func (c *Codec) Establish(ctx context.Context, user *models.User) (string, error) {
	if user == nil || user.ID == uuid.Nil {
		return "", errors.New("cannot establish a session without a user id")
	}

	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	if err := c.sessions.Put(ctx, hashToken(token), user.ID, c.ttl); err != nil {
		return "", fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return token, nil
}

// Resolve returns the current user record for token. A nil user with a nil
// error means anonymous: empty, unknown, expired or orphaned token. The
// record is always re-read so identity changes apply on the next request.
func (c *Codec) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}

	hash := hashToken(token)
	userID, err := c.sessions.Get(ctx, hash)
	if errors.Is(err, ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	user, err := c.users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		// User deleted out of band; drop the dangling session.
		_ = c.sessions.Delete(ctx, hash)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Destroy removes the session for token. Unknown tokens are not an error.
func (c *Codec) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := c.sessions.Delete(ctx, hashToken(token)); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// Ping checks the session backend.
func (c *Codec) Ping(ctx context.Context) error {
	return c.sessions.Ping(ctx)
}
