package portfolio

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kiteboard/kiteboard-backend/internal/config"
	"gorm.io/gorm"
)

// Plugin serves the dashboard's holdings, positions and orders.
type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) ID() string { return "portfolio" }

func (p *Plugin) Models() []interface{} {
	return []interface{}{
		&Holding{},
		&Position{},
		&Order{},
	}
}

func (p *Plugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	svc := NewService(db)
	handler := NewHandler(svc)

	router.Get("/holdings", handler.ListHoldings)
	router.Post("/holdings", handler.AddHolding)
	router.Get("/positions", handler.ListPositions)
	router.Post("/positions", handler.AddPosition)
	router.Get("/orders", handler.ListOrders)
	router.Post("/orders", handler.PlaceOrder)
}
