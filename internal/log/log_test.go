package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetup_DefaultLevel(t *testing.T) {
	logger := Setup(false, false)

	ctx := context.Background()
	handler := logger.Handler()
	assert.True(t, handler.Enabled(ctx, slog.LevelWarn), "WARN should be enabled in default mode")
	assert.True(t, handler.Enabled(ctx, slog.LevelError), "ERROR should be enabled in default mode")
	assert.False(t, handler.Enabled(ctx, slog.LevelInfo), "INFO should not be enabled in default mode")
	assert.False(t, handler.Enabled(ctx, slog.LevelDebug), "DEBUG should not be enabled in default mode")
	assert.Same(t, logger, slog.Default())
}

func TestSetup_VerboseLevel(t *testing.T) {
	handler := Setup(true, false).Handler()

	ctx := context.Background()
	assert.True(t, handler.Enabled(ctx, slog.LevelDebug), "DEBUG should be enabled in verbose mode")
	assert.True(t, handler.Enabled(ctx, slog.LevelWarn), "WARN should be enabled in verbose mode")
}

func TestSetup_QuietTakesPrecedence(t *testing.T) {
	// The switch checks quiet first.
	handler := Setup(true, true).Handler()

	ctx := context.Background()
	assert.False(t, handler.Enabled(ctx, slog.LevelDebug))
	assert.False(t, handler.Enabled(ctx, slog.LevelWarn), "WARN should not be enabled in quiet mode")
	assert.True(t, handler.Enabled(ctx, slog.LevelError), "ERROR should be enabled in quiet mode")
}

func TestSetup_WritesText(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, false, false)

	logger.Warn("skipping file", "path", "a.js")
	logger.Debug("not shown")

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "path=a.js")
	assert.NotContains(t, buf.String(), "not shown")
}
