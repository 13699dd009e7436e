package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestPrettyHandler_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "text", "info")

	log.With("component", "auth").Info("user logged in", "user_id", "42", "refresh_token", "abc.def.ghi")

	out := buf.String()
	assert.Contains(t, out, "user logged in")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "component")
	assert.Contains(t, out, redacted)
	assert.NotContains(t, out, "abc.def.ghi")
}

func TestPrettyHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "text", "warn")

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestJSONLogger_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json", "debug")

	log.Debug("login attempt", "nickname", "alice", "password", "hunter2")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "login attempt", record["msg"])
	assert.Equal(t, "alice", record["nickname"])
	assert.Equal(t, redacted, record["password"])
}
