package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kiteboard/kiteboard-backend/internal/database"
	"github.com/kiteboard/kiteboard-backend/internal/dto"
	"github.com/kiteboard/kiteboard-backend/internal/session"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db       *gorm.DB
	sessions *session.Codec
}

func NewHealthHandler(db *gorm.DB, sessions *session.Codec) *HealthHandler {
	return &HealthHandler{db: db, sessions: sessions}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "ok"

	dbStatus := "ok"
	if err := database.Ping(h.db); err != nil {
		dbStatus = "unhealthy"
		status = "degraded"
	}

	sessionStatus := "ok"
	if err := h.sessions.Ping(c.UserContext()); err != nil {
		sessionStatus = "unhealthy"
		status = "degraded"
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Sessions:  sessionStatus,
	})
}
