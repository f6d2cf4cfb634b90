package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kiteboard/kiteboard-backend/internal/identity"
	"github.com/kiteboard/kiteboard-backend/internal/session"
	"github.com/kiteboard/kiteboard-backend/internal/store"
	"github.com/kiteboard/kiteboard-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type downStore struct{}

func (downStore) Put(context.Context, string, uuid.UUID, time.Duration) error {
	return errors.New("connection refused")
}
func (downStore) Get(context.Context, string) (uuid.UUID, error) {
	return uuid.Nil, errors.New("connection refused")
}
func (downStore) Delete(context.Context, string) error { return errors.New("connection refused") }
func (downStore) Ping(context.Context) error           { return errors.New("connection refused") }

func newOutageApp(t *testing.T) *fiber.App {
	t.Helper()
	users := store.NewGormUserStore(testutil.NewDB(t))
	codec := session.NewCodec(downStore{}, users, time.Hour)

	app := fiber.New()
	app.Use(LoadSession(codec, cookieName, false))
	app.Get("/current-user", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user": identity.Current(c)})
	})
	app.Get("/orders", AuthRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestLoadSession_BackendDown(t *testing.T) {
	app := newOutageApp(t)

	req := httptest.NewRequest(http.MethodGet, "/current-user", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "some-token"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, decode(t, resp)["user"])

	req = httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "some-token"})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal server error", decode(t, resp)["message"])
}

func TestLoadSession_StaleCookieClearedAtRoot(t *testing.T) {
	app, _, _ := newGatedApp(t)
	app.Get("/auth/github/callback", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "expired-or-forged"})
	resp, err := app.Test(req)
	require.NoError(t, err)

	var cleared *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Equal(t, "/", cleared.Path)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.Expires.Before(time.Now()))
}
