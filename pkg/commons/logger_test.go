package commons

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewApplicationLogger_Defaults(t *testing.T) {
	logger, err := NewApplicationLogger()
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, logger.Level())
}

func TestNewApplicationLogger_InvalidLevel(t *testing.T) {
	logger, err := NewApplicationLogger(Level("loud"))
	assert.Error(t, err)
	assert.Nil(t, logger)
}

func TestNewApplicationLogger_WritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewApplicationLogger(
		Name("test-capture"),
		Path(dir),
		Level("debug"),
		Console(false),
	)
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, logger.Level())

	logger.Infow("recording started", "device", "mic-1")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "test-capture.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "recording started")
	assert.Contains(t, string(data), "mic-1")
}
