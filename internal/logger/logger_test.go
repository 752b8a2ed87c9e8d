package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// resetLogger resets the logger to default state for test isolation
func resetLogger() {
	Init(Options{})
}

func TestInit_DefaultLevel_Info(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	Info("test info")
	assert.Contains(t, buf.String(), "test info")

	buf.Reset()
	Debug("test debug")
	assert.NotContains(t, buf.String(), "test debug", "debug must be filtered at default level")
}

func TestInit_DebugLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Output: buf})
	defer resetLogger()

	Debug("test debug message")
	assert.Contains(t, buf.String(), "test debug message")
}

func TestInit_QuietLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Quiet: true, Output: buf})
	defer resetLogger()

	Info("test info")
	Warn("test warn")
	assert.Empty(t, buf.String())

	Error("test error")
	assert.Contains(t, buf.String(), "test error")
}

func TestQuiet_OverridesDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Quiet: true, Output: buf})
	defer resetLogger()

	Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestInit_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{JSON: true, Output: buf})
	defer resetLogger()

	Info("test message", "stage", "scrape")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "scrape", entry["stage"])
}

func TestInit_ConsoleFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	Warn("console message", "key", "value")

	out := buf.String()
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "console message")
	assert.Contains(t, out, `"key": "value"`)
}

func TestInit_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apywatch.log")
	Init(Options{Output: &bytes.Buffer{}, File: path})
	defer resetLogger()

	Info("to file", "n", 1)
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(string(data)), "{"), "file sink writes JSON")
	assert.Contains(t, string(data), "to file")
}

func TestWith_ReturnsLoggerWithAttrs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer resetLogger()

	With("run_id", "abc").Infow("stage done")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "stage done", entry.Message)
	assert.Equal(t, "abc", entry.ContextMap()["run_id"])
}

func TestInit_CustomLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Init(Options{Logger: zap.New(core)})
	defer resetLogger()

	Info("custom")
	Debug("filtered by observer level")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "custom", logs.All()[0].Message)
}
