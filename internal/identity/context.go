// Package identity carries the resolved user and session token through a
// request's fiber locals.
package identity

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kiteboard/kiteboard-backend/internal/models"
)

const (
	userKey      = "user"
	tokenKey     = "session_token"
	lookupErrKey = "session_lookup_error"
)

// UnauthorizedMessage is the single body every protected route answers an
// anonymous caller with.
const UnauthorizedMessage = "Unauthorized"

var ErrAnonymous = errors.New("no authenticated user in context")

// Set attaches the resolved user and the token it came from.
func Set(c *fiber.Ctx, user *models.User, token string) {
	c.Locals(userKey, user)
	c.Locals(tokenKey, token)
}

// Current returns the authenticated user, or nil when anonymous.
func Current(c *fiber.Ctx) *models.User {
	if user, ok := c.Locals(userKey).(*models.User); ok {
		return user
	}
	return nil
}

// Token returns the session token the request presented, if any.
func Token(c *fiber.Ctx) string {
	if token, ok := c.Locals(tokenKey).(string); ok {
		return token
	}
	return ""
}

// GetUserID returns the authenticated user's id.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	user := Current(c)
	if user == nil {
		return uuid.Nil, ErrAnonymous
	}
	return user.ID, nil
}

// SetLookupFailed records that the session backend could not be asked who
// the caller is. The request continues anonymously.
func SetLookupFailed(c *fiber.Ctx, err error) {
	c.Locals(lookupErrKey, err)
}

// LookupFailed returns the error recorded by SetLookupFailed, if any.
func LookupFailed(c *fiber.Ctx) error {
	if err, ok := c.Locals(lookupErrKey).(error); ok {
		return err
	}
	return nil
}

// ExpireCookie deletes the session cookie on the path it was issued for.
func ExpireCookie(c *fiber.Ctx, name string, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
