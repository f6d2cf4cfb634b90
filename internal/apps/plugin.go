package apps

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kiteboard/kiteboard-backend/internal/config"
	"gorm.io/gorm"
)

// Plugin is a feature area mounted behind the auth gate.
type Plugin interface {
	// ID returns the unique plugin identifier.
	ID() string

	// Models returns the list of GORM model pointers for AutoMigrate.
	Models() []interface{}

	// RegisterRoutes mounts the plugin's routes on the given Fiber group.
	// The group already requires an authenticated session.
	RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config)
}
