package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/kiteboard/kiteboard-backend/internal/identity"
	"github.com/kiteboard/kiteboard-backend/internal/session"
)

// LoadSession resolves the session cookie into a user on every request.
// Anonymous requests pass through with no user attached. When the session
// backend fails, the request also continues anonymously with the failure
// recorded, and AuthRequired turns it into a 500 on protected routes.
func LoadSession(codec *session.Codec, cookieName string, secure bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(cookieName)
		if token == "" {
			return c.Next()
		}

		user, err := codec.Resolve(c.UserContext(), token)
		if err != nil {
			slog.Error("session resolve failed",
				"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
				"action", "resolve_session",
				"path", c.Path(),
				"error", err,
			)
			identity.SetLookupFailed(c, err)
			return c.Next()
		}
		if user == nil {
			// Stale cookie; the client holds nothing we recognise.
			identity.ExpireCookie(c, cookieName, secure)
			return c.Next()
		}

		identity.Set(c, user, token)
		return c.Next()
	}
}
