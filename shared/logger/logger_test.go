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
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestComponentLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "debug", true)
	defer Initialize("info", false)

	Component("reset_tokens").Info("token issued", "account_id", "abc")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "reset_tokens", entry["component"])
	assert.Equal(t, "token issued", entry["msg"])
	assert.Equal(t, "abc", entry["account_id"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "error", false)
	defer Initialize("info", false)

	Log.Info("hidden")
	assert.Zero(t, buf.Len())
	Log.Error("shown")
	assert.Contains(t, buf.String(), "shown")
}
