package config

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(LogConfig{Level: "info", Format: "json"}, &buf).Debug("hidden")
	assert.Empty(t, buf.String())

	NewLogger(LogConfig{Level: "info", Format: "json"}, &buf).Info("shown", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	NewLogger(LogConfig{Level: "debug", Format: "text"}, &buf).Debug("tinted", "k", "v")
	assert.Contains(t, buf.String(), "tinted")
	assert.Contains(t, buf.String(), "k=")
}
