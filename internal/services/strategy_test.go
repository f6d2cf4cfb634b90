package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/kiteboard/kiteboard-backend/internal/dto"
	"github.com/kiteboard/kiteboard-backend/internal/models"
	"github.com/kiteboard/kiteboard-backend/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategyNames(t *testing.T) {
	assert.Equal(t, "local", StrategyLocal.String())
	assert.Equal(t, "google", StrategyGoogle.String())
	assert.Equal(t, "github", StrategyGitHub.String())

	s, ok := ParseStrategy("github")
	assert.True(t, ok)
	assert.Equal(t, StrategyGitHub, s)

	_, ok = ParseStrategy("local")
	assert.False(t, ok, "local is not a delegated strategy")
	_, ok = ParseStrategy("apple")
	assert.False(t, ok)
}

func TestRouter_LocalLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, &dto.RegisterRequest{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	out := env.router.Authenticate(ctx, Attempt{Strategy: StrategyLocal, Username: "alice", Password: "pw1"})
	require.True(t, out.Authenticated(), "%v", out.Err)
	assert.Equal(t, "alice", *out.User.Username)

	resolved, err := env.codec.Resolve(ctx, out.Token)
	require.NoError(t, err)
	assert.Equal(t, out.User.ID, resolved.ID)
}

func TestRouter_LocalFailuresAreGeneric(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, &dto.RegisterRequest{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	wrong := env.router.Authenticate(ctx, Attempt{Strategy: StrategyLocal, Username: "alice", Password: "wrong"})
	assert.False(t, wrong.Authenticated())
	assert.Empty(t, wrong.Token)
	assert.ErrorIs(t, wrong.Err, ErrAuthenticationFailed)
	assert.ErrorIs(t, wrong.Err, ErrInvalidCredentials)

	missing := env.router.Authenticate(ctx, Attempt{Strategy: StrategyLocal, Username: "nobody", Password: "pw1"})
	assert.ErrorIs(t, missing.Err, ErrAuthenticationFailed)
	assert.ErrorIs(t, missing.Err, ErrUserNotFound)

	empty := env.router.Authenticate(ctx, Attempt{Strategy: StrategyLocal})
	assert.ErrorIs(t, empty.Err, ErrAuthenticationFailed)

	var sessions int64
	require.NoError(t, env.db.Model(&models.Session{}).Count(&sessions).Error)
	assert.Zero(t, sessions, "failed logins must not create sessions")
}

func TestRouter_LoginReplacesPreviousSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, &dto.RegisterRequest{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	first := env.router.Authenticate(ctx, Attempt{Strategy: StrategyLocal, Username: "alice", Password: "pw1"})
	require.True(t, first.Authenticated())

	second := env.router.Authenticate(ctx, Attempt{Strategy: StrategyLocal, Username: "alice", Password: "pw1", PreviousToken: first.Token})
	require.True(t, second.Authenticated())
	assert.NotEqual(t, first.Token, second.Token)

	old, err := env.codec.Resolve(ctx, first.Token)
	require.NoError(t, err)
	assert.Nil(t, old)
}

func beginAndParseState(t *testing.T, env *testEnv, strategy Strategy) (state, nonce string) {
	t.Helper()
	redirect, nonce, err := env.router.Begin(strategy)
	require.NoError(t, err)
	u, err := url.Parse(redirect)
	require.NoError(t, err)
	return u.Query().Get("state"), nonce
}

func TestRouter_ProviderCallbackTwiceCreatesOneUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	idp := &fakeProvider{profile: &ExternalProfile{Subject: "ext-42", Username: "alice.g", Email: "alice@example.com"}}
	env.router.WithProvider(StrategyGoogle, idp)

	var ids []string
	for i := 0; i < 2; i++ {
		state, nonce := beginAndParseState(t, env, StrategyGoogle)
		out := env.router.Authenticate(ctx, Attempt{Strategy: StrategyGoogle, Code: "code", State: state, Nonce: nonce})
		require.True(t, out.Authenticated(), "%v", out.Err)
		require.NotNil(t, out.User.GoogleID)
		assert.Equal(t, "ext-42", *out.User.GoogleID)
		ids = append(ids, out.User.ID.String())
	}
	assert.Equal(t, ids[0], ids[1])

	var count int64
	require.NoError(t, env.db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRouter_ProviderRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	idp := &fakeProvider{profile: &ExternalProfile{Subject: "1"}}
	env.router.WithProvider(StrategyGitHub, idp)

	state, nonce := beginAndParseState(t, env, StrategyGitHub)

	out := env.router.Authenticate(ctx, Attempt{Strategy: StrategyGitHub, Code: "c", State: state, Nonce: "forged"})
	assert.ErrorIs(t, out.Err, ErrProviderAssertionInvalid)
	assert.Zero(t, idp.calls, "provider must not be called on bad state")

	out = env.router.Authenticate(ctx, Attempt{Strategy: StrategyGitHub, State: state, Nonce: nonce})
	assert.ErrorIs(t, out.Err, ErrProviderAssertionInvalid)

	idp.err = ErrProviderTimeout
	out = env.router.Authenticate(ctx, Attempt{Strategy: StrategyGitHub, Code: "c", State: state, Nonce: nonce})
	assert.ErrorIs(t, out.Err, ErrProviderTimeout)
	assert.False(t, out.Authenticated())

	out = env.router.Authenticate(ctx, Attempt{Strategy: StrategyGoogle, Code: "c", State: state, Nonce: nonce})
	assert.ErrorIs(t, out.Err, ErrProviderNotConfigured)

	out = env.router.Authenticate(ctx, Attempt{Strategy: Strategy(42)})
	assert.ErrorIs(t, out.Err, ErrUnknownStrategy)
}

func TestRouter_BeginUnconfigured(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.router.Begin(StrategyGoogle)
	assert.True(t, errors.Is(err, ErrProviderNotConfigured))
}

func TestRouter_StoreOutageLoggedAsError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, &dto.RegisterRequest{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	codec := session.NewCodec(downSessions{}, env.users, time.Hour)
	router := NewStrategyRouter(env.auth, env.resolver, codec, env.state)
	logs := captureLogs(t)

	out := router.Authenticate(ctx, Attempt{Strategy: StrategyLocal, Username: "alice", Password: "pw1", RequestID: "req-7"})
	assert.False(t, out.Authenticated())
	assert.ErrorIs(t, out.Err, ErrStoreUnavailable)

	errs := logs.atLeast(slog.LevelError)
	require.Len(t, errs, 1)
	assert.Equal(t, "local", errs[0]["strategy"])
	assert.Equal(t, "req-7", errs[0]["request_id"])
	assert.Contains(t, errs[0]["error"], "connection refused")
}

func TestRouter_WrongPasswordNotLoggedAsError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, &dto.RegisterRequest{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	logs := captureLogs(t)

	out := env.router.Authenticate(ctx, Attempt{Strategy: StrategyLocal, Username: "alice", Password: "nope"})
	assert.False(t, out.Authenticated())
	assert.Empty(t, logs.atLeast(slog.LevelError))
	assert.Len(t, logs.atLeast(slog.LevelWarn), 1)
}
