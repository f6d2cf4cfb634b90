// Package session maps opaque client tokens to user ids and resolves them
// back into full user records on every request.
package session

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNoSession is returned by stores for absent or expired tokens.
var ErrNoSession = errors.New("session not found")

// Store persists token-to-user mappings. Implementations receive the token
// hash, never the raw token.
type Store interface {
	Put(ctx context.Context, tokenHash string, userID uuid.UUID, ttl time.Duration) error
	Get(ctx context.Context, tokenHash string) (uuid.UUID, error)
	Delete(ctx context.Context, tokenHash string) error
	Ping(ctx context.Context) error
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
