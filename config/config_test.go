package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetApplicationConfig_Defaults(t *testing.T) {
	t.Setenv("ENV_PATH", filepath.Join(t.TempDir(), "missing.env"))

	v, err := InitConfig()
	require.NoError(t, err)

	cfg, err := GetApplicationConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "voice-capture", cfg.Name)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "file", cfg.UploadConfig.FieldName)
	assert.Equal(t, 30*time.Second, cfg.UploadConfig.Timeout)
	assert.Equal(t, []string{"default"}, cfg.CaptureConfig.Devices)
	assert.Equal(t, "single", cfg.CaptureConfig.Mode)
	assert.Equal(t, 10*time.Minute, cfg.CaptureConfig.MaxDuration)
	assert.Equal(t, 50<<20, cfg.CaptureConfig.MaxPayloadBytes)
	assert.Equal(t, 250*time.Millisecond, cfg.CaptureConfig.ChunkInterval)
	assert.Equal(t, "sqlite", cfg.DatabaseConfig.Driver)
	assert.False(t, cfg.RedisConfig.Enabled())
}

func TestGetApplicationConfig_EnvFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "PORT=8081\n" +
		"UPLOAD__URL=https://api.example.com/v1/voice\n" +
		"UPLOAD__FIELD_NAME=audios\n" +
		"UPLOAD__TIMEOUT=5s\n" +
		"CAPTURE__MODE=multi\n" +
		"REDIS__HOST=cache.internal\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("ENV_PATH", path)

	v, err := InitConfig()
	require.NoError(t, err)

	cfg, err := GetApplicationConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, "https://api.example.com/v1/voice", cfg.UploadConfig.URL)
	assert.Equal(t, "audios", cfg.UploadConfig.FieldName)
	assert.Equal(t, 5*time.Second, cfg.UploadConfig.Timeout)
	assert.Equal(t, "multi", cfg.CaptureConfig.Mode)
	assert.True(t, cfg.RedisConfig.Enabled())
	assert.Equal(t, "cache.internal:6379", cfg.RedisConfig.Addr())
}

func TestGetApplicationConfig_RejectsUnknownFieldName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.env")
	require.NoError(t, os.WriteFile(path, []byte("UPLOAD__FIELD_NAME=blob\n"), 0o644))
	t.Setenv("ENV_PATH", path)

	v, err := InitConfig()
	require.NoError(t, err)

	cfg, err := GetApplicationConfig(v)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestGetApplicationConfig_LeaseMustOutliveRecording(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lease.env")
	content := "CAPTURE__MAX_DURATION=20m\n" +
		"CAPTURE__LEASE_TTL=15m\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("ENV_PATH", path)

	v, err := InitConfig()
	require.NoError(t, err)

	cfg, err := GetApplicationConfig(v)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestGetApplicationConfig_ZeroMaxDurationDisablesCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nocap.env")
	require.NoError(t, os.WriteFile(path, []byte("CAPTURE__MAX_DURATION=0s\n"), 0o644))
	t.Setenv("ENV_PATH", path)

	v, err := InitConfig()
	require.NoError(t, err)

	cfg, err := GetApplicationConfig(v)
	require.NoError(t, err)
	assert.Zero(t, cfg.CaptureConfig.MaxDuration)
	assert.Equal(t, 15*time.Minute, cfg.CaptureConfig.LeaseTTL)
}
