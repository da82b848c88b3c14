package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, "my_db.db", cfg.DBPath)
	assert.Equal(t, 10, cfg.CameraProbeMax)
	assert.Equal(t, 30*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "admin", cfg.AdminUser)
	assert.True(t, cfg.DarkTheme)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("CAMERA_PROBE_MAX", "3")
	t.Setenv("CAMERA_POLL_INTERVAL", "50ms")
	t.Setenv("DARK_THEME", "false")

	cfg := Load()
	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, 3, cfg.CameraProbeMax)
	assert.Equal(t, 50*time.Millisecond, cfg.PollInterval)
	assert.False(t, cfg.DarkTheme)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("CAMERA_POLL_INTERVAL", "soon")
	t.Setenv("RATE_LIMIT_PER_MIN", "many")

	cfg := Load()
	assert.Equal(t, 30*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
}

func TestLoadIntWithTrailingGarbageFallsBack(t *testing.T) {
	t.Setenv("CAMERA_PROBE_MAX", "50x")

	cfg := Load()
	assert.Equal(t, 10, cfg.CameraProbeMax)
}

func TestImagePaths(t *testing.T) {
	t.Setenv("IMAGES_DIR", "assets")

	cfg := Load()
	assert.Equal(t, filepath.Join("assets", "temp.jpg"), cfg.StagingPath())
	assert.Equal(t, filepath.Join("assets", "profile.jpg"), cfg.DefaultPhotoPath())
}
