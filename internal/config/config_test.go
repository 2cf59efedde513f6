package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Store.CacheTTL())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "concurrent", cfg.Fetch.Policy)
	assert.Equal(t, 5, cfg.Fetch.MaxAttempts)
	assert.Equal(t, 1000, cfg.Fetch.InitialBackoffMs)
	assert.InDelta(t, 2.0, cfg.Fetch.Multiplier, 0.001)
	assert.Equal(t, 2*time.Second, cfg.Fetch.SerialPause())
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout())
	assert.Equal(t, "lambert93", cfg.Projection.Name)
	assert.Equal(t, "GEO2023RP2020", cfg.Insee.CensusVintage)
	assert.Equal(t, "https://api.insee.fr/entreprises/sirene/V3.11", cfg.Sirene.BaseURL)
	assert.Equal(t, 1000, cfg.Sirene.PageSize)
	assert.Equal(t, "https://geo.api.gouv.fr", cfg.GeoAPI.BaseURL)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/medlin
log:
  level: debug
  format: console
fetch:
  policy: serial
  serial_pause_ms: 500
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/medlin", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "serial", cfg.Fetch.Policy)
	assert.Equal(t, 500*time.Millisecond, cfg.Fetch.SerialPause())
	// Defaults still apply for unset values
	assert.Equal(t, 5, cfg.Fetch.MaxAttempts)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("MEDLIN_STORE_DRIVER", "postgres")
	t.Setenv("MEDLIN_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("MEDLIN_SERVER_PORT", "3000")
	t.Setenv("MEDLIN_INSEE_TOKEN", "tok")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "tok", cfg.Insee.Token)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Insee.Token = "token"
	cfg.Fetch.Policy = "concurrent"
	cfg.Fetch.MaxAttempts = 5
	cfg.Store.Driver = "sqlite"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateStats_AllPresent(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("stats"))
	assert.NoError(t, cfg.Validate("etablissements"))
}

func TestValidateStats_MissingToken(t *testing.T) {
	cfg := validDefaults()
	cfg.Insee.Token = ""

	err := cfg.Validate("stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insee.token is required")
}

func TestValidate_BadPolicyAndDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Fetch.Policy = "parallel"
	cfg.Store.Driver = "mysql"
	cfg.Fetch.MaxAttempts = 0

	err := cfg.Validate("stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch.policy")
	assert.Contains(t, err.Error(), "store.driver")
	assert.Contains(t, err.Error(), "fetch.max_attempts")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateCache_NoStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "none"

	err := cfg.Validate("cache")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cache")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
