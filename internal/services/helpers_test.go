package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiteboard/kiteboard-backend/internal/session"
	"github.com/kiteboard/kiteboard-backend/internal/store"
	"github.com/kiteboard/kiteboard-backend/internal/testutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	users    *store.GormUserStore
	auth     *AuthService
	resolver *IdentityResolver
	codec    *session.Codec
	state    *StateSigner
	router   *StrategyRouter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	users := store.NewGormUserStore(db)
	env := &testEnv{
		db:       db,
		users:    users,
		auth:     NewAuthService(users, bcrypt.MinCost),
		resolver: NewIdentityResolver(users),
		codec:    session.NewCodec(session.NewGormStore(db), users, time.Hour),
		state:    NewStateSigner("test-secret", 10*time.Minute),
	}
	env.router = NewStrategyRouter(env.auth, env.resolver, env.codec, env.state)
	return env
}

// fakeProvider hands out a fixed profile for any code.
type fakeProvider struct {
	profile *ExternalProfile
	err     error
	calls   int
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://idp.example/authorize?state=" + state
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (*ExternalProfile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := *f.profile
	return &p, nil
}

// downSessions is a session backend that refuses every call.
type downSessions struct{}

func (downSessions) Put(context.Context, string, uuid.UUID, time.Duration) error {
	return errors.New("connection refused")
}
func (downSessions) Get(context.Context, string) (uuid.UUID, error) {
	return uuid.Nil, errors.New("connection refused")
}
func (downSessions) Delete(context.Context, string) error { return errors.New("connection refused") }
func (downSessions) Ping(context.Context) error           { return errors.New("connection refused") }

// captureLogs swaps the default logger for one that keeps records in
// memory until the test ends.
func captureLogs(t *testing.T) *logSink {
	t.Helper()
	sink := &logSink{}
	prev := slog.Default()
	slog.SetDefault(slog.New(sink))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return sink
}

type logSink struct {
	mu      sync.Mutex
	records []slog.Record
}

func (s *logSink) Enabled(context.Context, slog.Level) bool { return true }

func (s *logSink) Handle(_ context.Context, r slog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r.Clone())
	return nil
}

func (s *logSink) WithAttrs([]slog.Attr) slog.Handler { return s }
func (s *logSink) WithGroup(string) slog.Handler      { return s }

// atLeast returns the captured records at level or above, with attrs
// flattened to strings.
func (s *logSink) atLeast(level slog.Level) []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []map[string]string
	for _, r := range s.records {
		if r.Level < level {
			continue
		}
		attrs := map[string]string{"msg": r.Message}
		r.Attrs(func(a slog.Attr) bool {
			attrs[a.Key] = a.Value.String()
			return true
		})
		out = append(out, attrs)
	}
	return out
}
