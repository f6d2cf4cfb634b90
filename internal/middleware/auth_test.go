package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kiteboard/kiteboard-backend/internal/identity"
	"github.com/kiteboard/kiteboard-backend/internal/models"
	"github.com/kiteboard/kiteboard-backend/internal/session"
	"github.com/kiteboard/kiteboard-backend/internal/store"
	"github.com/kiteboard/kiteboard-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookieName = "kb_session"

func newGatedApp(t *testing.T) (*fiber.App, *session.Codec, *models.User) {
	t.Helper()
	db := testutil.NewDB(t)
	users := store.NewGormUserStore(db)
	codec := session.NewCodec(session.NewGormStore(db), users, time.Hour)

	name, hash := "alice", "hash"
	alice := &models.User{Username: &name, PasswordHash: &hash}
	require.NoError(t, users.Create(context.Background(), alice))

	app := fiber.New()
	app.Use(LoadSession(codec, cookieName, false))
	app.Get("/orders", AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"owner": *identity.Current(c).Username})
	})
	app.Get("/missing", AuthRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})
	return app, codec, alice
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestAuthRequired_NoSession(t *testing.T) {
	app, _, _ := newGatedApp(t)

	for _, path := range []string{"/orders", "/missing"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Unauthorized", decode(t, resp)["message"])
	}
}

func TestAuthRequired_ValidSession(t *testing.T) {
	app, codec, alice := newGatedApp(t)

	token, err := codec.Establish(context.Background(), alice)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", decode(t, resp)["owner"])
}

func TestAuthRequired_StaleCookie(t *testing.T) {
	app, _, _ := newGatedApp(t)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "expired-or-forged"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequired_AfterLogout(t *testing.T) {
	app, codec, alice := newGatedApp(t)
	ctx := context.Background()

	token, err := codec.Establish(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, codec.Destroy(ctx, token))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
