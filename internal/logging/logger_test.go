package logging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("chatty")
	assert.Error(t, err)
}

func TestForSession_WritesFile(t *testing.T) {
	dir := t.TempDir()

	logger, closeFn, err := ForSession(zap.NewNop(), "info", dir, "sess-42")
	require.NoError(t, err)

	logger.Info("slot-acquired", zap.String("slot", "bot1"))
	logger.Debug("hidden-at-info")
	require.NoError(t, closeFn())

	lines, err := ReadSessionLog(dir, "sess-42")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, strings.Contains(lines[0], `"msg":"slot-acquired"`))
	assert.True(t, strings.Contains(lines[0], `"session_id":"sess-42"`))
}

func TestReadSessionLog_Missing(t *testing.T) {
	_, err := ReadSessionLog(t.TempDir(), "nope")
	assert.ErrorIs(t, err, ErrNoLog)
}
