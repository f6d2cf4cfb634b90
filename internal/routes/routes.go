package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/kiteboard/kiteboard-backend/internal/apps"
	"github.com/kiteboard/kiteboard-backend/internal/config"
	"github.com/kiteboard/kiteboard-backend/internal/handlers"
	"github.com/kiteboard/kiteboard-backend/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	plugins []apps.Plugin,
) {
	app.Get("/health", healthHandler.Check)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Credential endpoints share a stricter per-IP budget.
	authLimit := limiter.New(limiter.Config{
		Max:               cfg.AuthRateLimit,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
	app.Post("/register", authLimit, authHandler.Register)
	app.Post("/login", authLimit, authHandler.Login)
	app.Get("/auth/:provider", authLimit, authHandler.ProviderLogin)
	app.Get("/auth/:provider/callback", authLimit, authHandler.ProviderCallback)

	app.Get("/logout", authHandler.Logout)
	app.Post("/logout", authHandler.Logout)
	app.Get("/current-user", authHandler.CurrentUser)

	// Everything plugins mount is behind the session gate, which also
	// answers 401 for unmatched paths of anonymous callers.
	protected := app.Group("", middleware.AuthRequired())
	for _, p := range plugins {
		p.RegisterRoutes(protected, db, cfg)
	}
}
