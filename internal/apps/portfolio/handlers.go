package portfolio

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/kiteboard/kiteboard-backend/internal/dto"
	"github.com/kiteboard/kiteboard-backend/internal/identity"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidPrice) ||
		errors.Is(err, ErrInvalidMode) ||
		errors.Is(err, ErrInvalidProduct)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: identity.UnauthorizedMessage,
	})
}

func (h *Handler) ListHoldings(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	holdings, err := h.service.ListHoldings(c.UserContext(), userID)
	if err != nil {
		slog.Error("list holdings failed", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Error fetching holdings",
		})
	}
	return c.JSON(holdings)
}

func (h *Handler) AddHolding(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req HoldingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	holding, err := h.service.AddHolding(c.UserContext(), userID, req)
	if err != nil {
		if isValidationError(err) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		slog.Error("add holding failed", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Error adding holding",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Holding added", "holding": holding})
}

func (h *Handler) ListPositions(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	positions, err := h.service.ListPositions(c.UserContext(), userID)
	if err != nil {
		slog.Error("list positions failed", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Error fetching positions",
		})
	}
	return c.JSON(positions)
}

func (h *Handler) AddPosition(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req PositionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	position, err := h.service.AddPosition(c.UserContext(), userID, req)
	if err != nil {
		if isValidationError(err) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		slog.Error("add position failed", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Error adding position",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Position added", "position": position})
}

func (h *Handler) ListOrders(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	orders, err := h.service.ListOrders(c.UserContext(), userID)
	if err != nil {
		slog.Error("list orders failed", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Error fetching orders",
		})
	}
	return c.JSON(orders)
}

func (h *Handler) PlaceOrder(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req OrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	order, err := h.service.PlaceOrder(c.UserContext(), userID, req)
	if err != nil {
		if isValidationError(err) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		slog.Error("place order failed", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Error saving order",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Order saved", "order": order})
}
