package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kiteboard/kiteboard-backend/internal/config"
	"github.com/kiteboard/kiteboard-backend/internal/dto"
	"github.com/kiteboard/kiteboard-backend/internal/identity"
	"github.com/kiteboard/kiteboard-backend/internal/services"
	"github.com/kiteboard/kiteboard-backend/internal/session"
)

const (
	nonceCookieName = "kb_oauth_nonce"
	nonceTTL        = 10 * time.Minute
)

type AuthHandler struct {
	authService *services.AuthService
	router      *services.StrategyRouter
	sessions    *session.Codec
	cfg         *config.Config
}

func NewAuthHandler(authService *services.AuthService, router *services.StrategyRouter, sessions *session.Codec, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, router: router, sessions: sessions, cfg: cfg}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	user, err := h.authService.Register(c.UserContext(), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingCredentials),
			errors.Is(err, services.ErrPasswordTooLong),
			errors.Is(err, services.ErrFieldTooLong):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, services.ErrDuplicateUsername):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: "Username already taken",
			})
		}
		slog.Error("registration failed", "request_id", requestID(c), "action", "register", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Registration failed",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.AuthResponse{
		Message: "User registered successfully",
		User:    dto.NewUserResponse(user),
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	out := h.router.Authenticate(c.UserContext(), services.Attempt{
		Strategy:      services.StrategyLocal,
		Username:      req.Username,
		Password:      req.Password,
		PreviousToken: c.Cookies(h.cfg.SessionCookieName),
		RequestID:     requestID(c),
	})
	if !out.Authenticated() {
		if errors.Is(out.Err, services.ErrAuthenticationFailed) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Authentication failed",
			})
		}
		// Store outages were already logged at ERROR by the router.
		if !errors.Is(out.Err, services.ErrStoreUnavailable) {
			slog.Error("login failed", "strategy", services.StrategyLocal.String(), "request_id", requestID(c), "error", out.Err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	h.setSessionCookie(c, out.Token)
	return c.JSON(dto.AuthResponse{
		Message: "Logged in successfully",
		User:    dto.NewUserResponse(out.User),
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token := identity.Token(c)
	if token == "" {
		token = c.Cookies(h.cfg.SessionCookieName)
	}

	if err := h.sessions.Destroy(c.UserContext(), token); err != nil {
		slog.Error("logout failed", "request_id", requestID(c), "action", "logout", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to logout",
		})
	}

	identity.ExpireCookie(c, h.cfg.SessionCookieName, h.cfg.SessionSecure)
	return c.JSON(dto.MessageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) CurrentUser(c *fiber.Ctx) error {
	return c.JSON(dto.CurrentUserResponse{User: dto.NewUserResponse(identity.Current(c))})
}

// ProviderLogin redirects the browser to the provider named in the route.
func (h *AuthHandler) ProviderLogin(c *fiber.Ctx) error {
	strategy, ok := services.ParseStrategy(c.Params("provider"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Unknown provider",
		})
	}

	redirectURL, nonce, err := h.router.Begin(strategy)
	if err != nil {
		slog.Warn("provider login unavailable", "strategy", strategy.String(), "error", err)
		return c.Redirect(h.cfg.FailureRedirectURL, fiber.StatusFound)
	}

	c.Cookie(&fiber.Cookie{
		Name:     nonceCookieName,
		Value:    nonce,
		Path:     "/auth",
		Expires:  time.Now().Add(nonceTTL),
		HTTPOnly: true,
		Secure:   h.cfg.SessionSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(redirectURL, fiber.StatusFound)
}

// ProviderCallback completes a delegated login. The browser is mid-redirect,
// so both outcomes are redirects rather than JSON.
func (h *AuthHandler) ProviderCallback(c *fiber.Ctx) error {
	strategy, ok := services.ParseStrategy(c.Params("provider"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Unknown provider",
		})
	}

	nonce := c.Cookies(nonceCookieName)
	c.Cookie(&fiber.Cookie{
		Name:     nonceCookieName,
		Path:     "/auth",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cfg.SessionSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	if reason := c.Query("error"); reason != "" {
		slog.Info("provider denied login", "strategy", strategy.String(), "reason", reason)
		return c.Redirect(h.cfg.FailureRedirectURL, fiber.StatusFound)
	}

	out := h.router.Authenticate(c.UserContext(), services.Attempt{
		Strategy:      strategy,
		Code:          c.Query("code"),
		State:         c.Query("state"),
		Nonce:         nonce,
		PreviousToken: c.Cookies(h.cfg.SessionCookieName),
		RequestID:     requestID(c),
	})
	if !out.Authenticated() {
		return c.Redirect(h.cfg.FailureRedirectURL, fiber.StatusFound)
	}

	h.setSessionCookie(c, out.Token)
	return c.Redirect(h.cfg.FrontendURL, fiber.StatusFound)
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.sessions.TTL()),
		HTTPOnly: true,
		Secure:   h.cfg.SessionSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func requestID(c *fiber.Ctx) string {
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
