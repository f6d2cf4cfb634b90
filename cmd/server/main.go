package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kiteboard/kiteboard-backend/internal/apps"
	"github.com/kiteboard/kiteboard-backend/internal/apps/portfolio"
	"github.com/kiteboard/kiteboard-backend/internal/config"
	"github.com/kiteboard/kiteboard-backend/internal/database"
	"github.com/kiteboard/kiteboard-backend/internal/dto"
	"github.com/kiteboard/kiteboard-backend/internal/handlers"
	"github.com/kiteboard/kiteboard-backend/internal/logging"
	"github.com/kiteboard/kiteboard-backend/internal/middleware"
	"github.com/kiteboard/kiteboard-backend/internal/routes"
	"github.com/kiteboard/kiteboard-backend/internal/services"
	"github.com/kiteboard/kiteboard-backend/internal/session"
	"github.com/kiteboard/kiteboard-backend/internal/store"
	"gorm.io/gorm"
)

const (
	stateTTL      = 10 * time.Minute
	purgeInterval = time.Hour
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	stdout := logging.Setup(cfg.LogLevel)

	if cfg.SessionSecret == "" {
		slog.Error("SESSION_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.MigrateShared(db); err != nil {
		slog.Error("shared migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(db, 5*time.Second)
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, pgLogHandler)))

	done := make(chan struct{})
	logging.StartCleanup(db, cfg.LogRetain, done)

	sessionStore, closeStore, err := openSessionStore(cfg, db, done)
	if err != nil {
		slog.Error("session store unavailable", "error", err)
		os.Exit(1)
	}

	// Services
	users := store.NewGormUserStore(db)
	authService := services.NewAuthService(users, cfg.BcryptCost)
	resolver := services.NewIdentityResolver(users)
	codec := session.NewCodec(sessionStore, users, cfg.SessionTTL)
	router := services.NewStrategyRouter(authService, resolver, codec, services.NewStateSigner(cfg.SessionSecret, stateTTL))

	if cfg.GoogleEnabled() {
		router.WithProvider(services.StrategyGoogle, services.NewGoogleProvider(
			cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL, cfg.ProviderTimeout))
		slog.Info("identity provider enabled", "strategy", services.StrategyGoogle.String())
	}
	if cfg.GitHubEnabled() {
		router.WithProvider(services.StrategyGitHub, services.NewGitHubProvider(
			cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL, cfg.ProviderTimeout))
		slog.Info("identity provider enabled", "strategy", services.StrategyGitHub.String())
	}

	plugins := []apps.Plugin{
		portfolio.New(),
	}
	for _, p := range plugins {
		if models := p.Models(); len(models) > 0 {
			if err := database.MigrateModels(db, models); err != nil {
				slog.Error("plugin migration failed", "plugin", p.ID(), "error", err)
				os.Exit(1)
			}
			slog.Info("plugin migrated", "plugin", p.ID(), "models", len(models))
		}
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, router, codec, cfg)
	healthHandler := handlers.NewHealthHandler(db, codec)

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})
	if cfg.SessionCookieKey != "" {
		app.Use(encryptcookie.New(encryptcookie.Config{Key: cfg.SessionCookieKey}))
	}
	app.Use(middleware.LoadSession(codec, cfg.SessionCookieName, cfg.SessionSecure))

	routes.Setup(app, cfg, db, authHandler, healthHandler, plugins)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(done)
	closeStore()
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

// openSessionStore picks Redis when REDIS_URL is set so sessions survive
// across instances; otherwise sessions live in Postgres and expired rows
// are purged in the background.
func openSessionStore(cfg *config.Config, db *gorm.DB, done chan struct{}) (session.Store, func(), error) {
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		rs, err := session.NewRedisStoreFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("session store ready", "backend", "redis")
		return rs, func() {
			if err := rs.Close(); err != nil {
				slog.Error("redis close error", "error", err)
			}
		}, nil
	}

	gs := session.NewGormStore(db)
	gs.StartPurge(purgeInterval, done)
	slog.Info("session store ready", "backend", "postgres")
	return gs, func() {}, nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error",
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
			"action", c.Method()+" "+c.Path(),
			"error", err.Error(),
		)
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: true, Message: message})
}
