package logging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, InfoLevel, ParseLevel("INFO"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel("Error"))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
}

func TestZapAdapter(t *testing.T) {
	t.Run("console output honours level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewZapLogger(LogConfig{Level: WarnLevel, Output: &buf})
		require.NoError(t, err)

		logger.Info("hidden message")
		logger.Warn("evict failed", String("name", "a"))
		logger.Error("delete failed", errors.New("disk gone"), Int("attempt", 1))

		output := buf.String()
		assert.NotContains(t, output, "hidden message")
		assert.Contains(t, output, "WARN")
		assert.Contains(t, output, "evict failed")
		assert.Contains(t, output, "ERROR")
		assert.Contains(t, output, "disk gone")
	})

	t.Run("json output", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewZapLogger(LogConfig{Level: DebugLevel, Output: &buf, Format: FormatJSON, Name: "cache"})
		require.NoError(t, err)

		logger.Debug("set", String("category", "models"))

		output := buf.String()
		assert.Contains(t, output, `"msg":"set"`)
		assert.Contains(t, output, `"category":"models"`)
		assert.Contains(t, output, `"logger":"cache"`)
	})
}

func TestZapAdapter_WithFieldsAndContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapAdapter(zap.New(core))

	scoped := logger.WithFields(String("category", "models"))
	scoped.Info("stored", Err(errors.New("ignored")))

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	logger.WithContext(ctx).Warn("with request")

	assert.Same(t, logger, logger.WithFields())
	assert.Same(t, logger, logger.WithContext(context.Background()))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "models", entries[0].ContextMap()["category"])
	assert.Equal(t, "ignored", entries[0].ContextMap()["error"])
	assert.Equal(t, "req-1", entries[1].ContextMap()["request_id"])
}

func TestGlobalLogger(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)
	require.NotNil(t, original, "a fallback logger exists before any is installed")

	core, logs := observer.New(zapcore.DebugLevel)
	installed := NewZapAdapter(zap.New(core))
	SetGlobalLogger(installed)

	assert.Same(t, installed, GetGlobalLogger())
	GetGlobalLogger().Info("routed")
	assert.Equal(t, 1, logs.FilterMessage("routed").Len())
}

func TestInitGlobalLogger(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	path := filepath.Join(t.TempDir(), "cache.log")
	logger, closer, err := InitGlobalLogger("DEBUG", FormatJSON, path)
	require.NoError(t, err)
	assert.Same(t, logger, GetGlobalLogger())

	logger.Info("evicted", Strings("names", []string{"a", "b"}), Duration("took", 1500*time.Millisecond))
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	output := string(data)
	assert.Contains(t, output, `"logger":"artifact-cache"`)
	assert.Contains(t, output, `"msg":"Logger initialized"`, "debug level parsed case-insensitively")
	assert.Contains(t, output, `"names":["a","b"]`)
	assert.Contains(t, output, `"took":1500`)

	_, _, err = InitGlobalLogger("info", FormatConsole, filepath.Join(t.TempDir(), "missing", "x.log"))
	assert.Error(t, err)
}

func TestInitGlobalLogger_Stderr(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	_, closer, err := InitGlobalLogger("error", FormatConsole, "")
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Error("nothing", errors.New("x"))
	assert.NotNil(t, logger.WithFields(String("a", "b")))
}
