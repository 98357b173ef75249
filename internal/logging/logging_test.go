package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTerminalHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)

	logger := slog.New(NewTerminalHandler(&buf, level))
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "key=value")

	level.Set(slog.LevelDebug)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestNewTerminalHandlerNoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTerminalHandler(&buf, slog.LevelInfo))
	logger.Info("plain")

	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestCritical(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTerminalHandler(&buf, slog.LevelInfo))

	Critical(logger, "afni_proc.py failed", "exit_code", 2)

	out := buf.String()
	assert.Contains(t, out, "ERR")
	assert.Contains(t, out, "critical=true")
	assert.Contains(t, out, "exit_code=2")
}
