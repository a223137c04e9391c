package applog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		out = append(out, e)
	}
	return out
}

func TestBuild_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := Build(Options{Service: "flow-server", JSON: true, Out: &buf})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("automation saved", "automation", "auto-1", "nodes", 3)
	require.NoError(t, l.Sync())

	got := entries(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "automation saved", got[0]["msg"])
	assert.Equal(t, "auto-1", got[0]["automation"])
	assert.Equal(t, "flow-server", got[0]["service"])
	assert.Equal(t, "info", got[0]["level"])
	assert.Contains(t, got[0], "time")
}

func TestBuild_Level(t *testing.T) {
	var buf bytes.Buffer
	l, err := Build(Options{Level: "DEBUG", Out: &buf})
	require.NoError(t, err)
	assert.Equal(t, "debug", l.Level())

	l.Debug("connection rejected", "source", "trigger-1")
	require.NoError(t, l.Sync())
	assert.Contains(t, buf.String(), "connection rejected")

	_, err = Build(Options{Level: "verbose"})
	assert.Error(t, err)
}

func TestSetLevel_GatesSlogAndZap(t *testing.T) {
	var buf bytes.Buffer
	l, err := Build(Options{Level: "warn", JSON: true, Out: &buf})
	require.NoError(t, err)
	child := l.With("automation", "auto-1")

	assert.False(t, child.Enabled(t.Context(), slog.LevelInfo))
	child.Info("dropped")

	require.NoError(t, l.SetLevel("info"))
	assert.True(t, child.Enabled(t.Context(), slog.LevelInfo))
	child.Info("kept")
	l.zl.Info("from zap")
	require.NoError(t, l.Sync())

	got := entries(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "kept", got[0]["msg"])
	assert.Equal(t, "auto-1", got[0]["automation"])
	assert.Equal(t, "from zap", got[1]["msg"])

	assert.Error(t, l.SetLevel("loud"))
	assert.Equal(t, "info", l.Level())
}

func TestLevelHandler(t *testing.T) {
	l, err := Build(Options{Out: &bytes.Buffer{}})
	require.NoError(t, err)
	h := l.LevelHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/log/level", strings.NewReader(`{"level":"error"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "error", l.Level())
	assert.False(t, l.Enabled(t.Context(), slog.LevelWarn))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/log/level", nil))
	assert.JSONEq(t, `{"level":"error"}`, rec.Body.String())
}
