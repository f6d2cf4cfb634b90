package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kiteboard/kiteboard-backend/internal/dto"
	"github.com/kiteboard/kiteboard-backend/internal/identity"
	"github.com/kiteboard/kiteboard-backend/internal/observability"
)

// AuthRequired lets a request through only when LoadSession attached a
// user. The rejection is identical for every protected route. A session
// backend outage is a server error, not a missing login.
func AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if identity.Current(c) != nil {
			return c.Next()
		}
		if identity.LookupFailed(c) != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Internal server error",
			})
		}
		observability.UnauthorizedTotal.Inc()
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: identity.UnauthorizedMessage,
		})
	}
}
