package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferedHandlerCapturesRecords(t *testing.T) {
	logger, handler := NewTestLogger()

	logger.Info("analysis started", slog.String("domain", "financial"))
	logger.Warn("file skipped", slog.String("reason", "unknown_domain"))

	assert.Len(t, handler.Records(), 2)
	assert.True(t, handler.ContainsMessage("analysis started"))
	assert.True(t, handler.ContainsAttr("reason", "unknown_domain"))
	assert.Len(t, handler.RecordsByLevel(slog.LevelWarn), 1)
}

func TestWithAttrsSharesBufferAndFoldsAttrs(t *testing.T) {
	logger, handler := NewTestLogger()

	component := logger.With(slog.String("component", "orchestrator"))
	component.Info("domain gated")

	assert.True(t, handler.ContainsAttr("component", "orchestrator"))
	assert.True(t, handler.ContainsMessage("domain gated"))
}
