package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestSlogLoggerModuleAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	root := NewSlogLogger(&buf, LogLevelDebug, time.UTC)

	root.Module("informer").Module("session").
		With(String("session_id", "abc")).
		Info("tick", Int("channels", 2), Duration("interval", time.Second))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "tick", lines[0]["msg"])
	assert.Equal(t, "informer.session", lines[0]["module"])
	assert.Equal(t, "abc", lines[0]["session_id"])
	assert.InDelta(t, 2, lines[0]["channels"], 0)
	assert.Equal(t, "1s", lines[0]["interval"])
}

func TestSlogLoggerLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewSlogLogger(&buf, LogLevelWarn, time.UTC)

	l.Trace("trace")
	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error", Error(assert.AnError))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, assert.AnError.Error(), lines[1]["error"])
}

func TestSlogLoggerTraceLevelName(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewSlogLogger(&buf, LogLevelTrace, time.UTC).Trace("sql")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "TRACE", lines[0]["level"])
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewSlogLogger(&buf, LogLevelInfo, time.UTC)
	ctx := WithTraceID(t.Context(), "req-1")

	l.WithContext(ctx).Info("hello")
	l.WithContext(t.Context()).Info("plain")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "req-1", lines[0]["trace_id"])
	assert.NotContains(t, lines[1], "trace_id")
}

func TestFileLoggerReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.log")
	l, err := NewSlogLoggerWithFile(path, LogLevelInfo, time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	mod := l.Module("api")
	mod.Info("before")

	rotated := path + ".1"
	require.NoError(t, os.Rename(path, rotated))
	require.NoError(t, l.ReopenLogFile())

	mod.Info("after")
	require.NoError(t, l.Flush())

	old, err := os.ReadFile(rotated)
	require.NoError(t, err)
	current, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(old), "before")
	assert.Contains(t, string(current), "after")
	assert.NotContains(t, string(current), "before")
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Timezone: "Not/AZone"})
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "logs", "friendswall.log")
	l, err := New(Config{Level: "debug", Timezone: "UTC", FilePath: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	l.Debug("written")
	require.NoError(t, l.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, LogLevelTrace, ParseLevel("trace"))
	assert.Equal(t, LogLevelError, ParseLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLevel("verbose"))
	assert.Equal(t, LogLevelInfo, ParseLevel(""))
}

func TestGormLoggerAdapterTrace(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := NewGormLoggerAdapter(NewSlogLogger(&buf, LogLevelTrace, time.UTC), 50*time.Millisecond)
	sql := func() (string, int64) { return "SELECT 1", 1 }

	adapter.Trace(t.Context(), time.Now(), sql, nil)
	adapter.Trace(t.Context(), time.Now().Add(-time.Second), sql, nil)
	adapter.Trace(t.Context(), time.Now(), sql, gorm.ErrRecordNotFound)
	adapter.Trace(t.Context(), time.Now(), sql, assert.AnError)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 4)
	assert.Equal(t, "sql query", lines[0]["msg"])
	assert.Equal(t, "slow query", lines[1]["msg"])
	assert.Equal(t, "sql query", lines[2]["msg"], "record not found is not an error")
	assert.Equal(t, "query error", lines[3]["msg"])
	assert.Equal(t, "WARN", lines[3]["level"])
}

func TestEchoLoggerAdapter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := NewEchoLoggerAdapter(NewSlogLogger(&buf, LogLevelInfo, time.UTC).Module("echo"))

	adapter.Infof("listening on %s", ":8080")
	adapter.Debug("hidden")
	adapter.Warn("careful")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "listening on :8080", lines[0]["msg"])
	assert.Equal(t, "echo", lines[0]["module"])
	assert.Equal(t, "WARN", lines[1]["level"])
	assert.Panics(t, func() { adapter.Panic("boom") })
}
