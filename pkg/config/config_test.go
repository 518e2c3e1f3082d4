package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 5*time.Minute, cfg.Scan.TokenTTL)
	assert.False(t, cfg.Scan.RejectOutsideGeofence)
	assert.Equal(t, 5, cfg.Backfill.MaxRetries)
}

func TestLoadReadsEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SCAN_REJECT_OUTSIDE_GEOFENCE", "true")
	t.Setenv("SCAN_TOKEN_TTL", "90s")
	t.Setenv("ALLOWED_ORIGINS", "https://portal.example, https://kiosk.example ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Scan.RejectOutsideGeofence)
	assert.Equal(t, 90*time.Second, cfg.Scan.TokenTTL)
	assert.Equal(t, []string{"https://portal.example", "https://kiosk.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadResolvesTimezone(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SCAN_TIMEZONE", "Asia/Jakarta")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.Scan.Zone)
	assert.Equal(t, "Asia/Jakarta", cfg.Scan.Location().String())
	_, offset := time.Date(2024, 1, 2, 8, 0, 0, 0, cfg.Scan.Location()).Zone()
	assert.Equal(t, 7*3600, offset)
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SCAN_TIMEZONE", "Asia/Jakrta")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SCAN_TIMEZONE")
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SCAN_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCAN_TIMEOUT")
}

func TestScanConfigLocationDefaultsToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, ScanConfig{}.Location())
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
