package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/kiteboard/kiteboard-backend/internal/models"
	"github.com/kiteboard/kiteboard-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("sink down")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestMultiHandler_FansOut(t *testing.T) {
	var info, errs bytes.Buffer
	logger := slog.New(NewMultiHandler(
		NewJSONHandler(&info, slog.LevelInfo),
		NewJSONHandler(&errs, slog.LevelError),
	)).With("strategy", "local")

	logger.Info("login ok")
	logger.Error("login failed")

	assert.Contains(t, info.String(), "login ok")
	assert.Contains(t, info.String(), "login failed")
	assert.NotContains(t, errs.String(), "login ok")
	assert.Contains(t, errs.String(), `"strategy":"local"`)
}

func TestMultiHandler_OneSinkFailing(t *testing.T) {
	var out bytes.Buffer
	h := NewMultiHandler(failingHandler{}, NewJSONHandler(&out, slog.LevelInfo))

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "still here", 0))
	assert.EqualError(t, err, "sink down")
	assert.Contains(t, out.String(), "still here")
}

func TestPGHandler_PersistsErrors(t *testing.T) {
	db := testutil.NewDB(t)
	h := NewPGHandler(db, time.Hour)
	logger := slog.New(h).With("request_id", "req-1")

	logger.Info("ignored")
	logger.Error("provider exchange failed",
		"strategy", "google",
		"user_id", "u-1",
		"error", "timeout",
		"latency_ms", 1500*time.Millisecond,
		"path", "/auth/google/callback",
	)
	h.Stop()

	var logs []models.SystemLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)

	entry := logs[0]
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "req-1", entry.RequestID)
	assert.Equal(t, "google", entry.Strategy)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "u-1", *entry.UserID)
	assert.Equal(t, 1500, entry.LatencyMs)

	var extra map[string]interface{}
	require.NoError(t, json.Unmarshal(entry.Extra, &extra))
	assert.Equal(t, "/auth/google/callback", extra["path"])
}

func TestPurgeBefore(t *testing.T) {
	db := testutil.NewDB(t)
	h := NewPGHandler(db, time.Hour)
	slog.New(h).Error("old")
	h.Stop()

	require.NoError(t, db.Model(&models.SystemLog{}).Where("1 = 1").
		Update("timestamp", time.Now().UTC().Add(-48*time.Hour)).Error)

	deleted, err := PurgeBefore(db, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}
