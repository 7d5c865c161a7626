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

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "..", cfg.Engine.InstallDir)
	assert.Equal(t, "cvmsi", cfg.Engine.Model)
	assert.Equal(t, 0, cfg.Engine.TimeoutSecs)
	assert.Equal(t, time.Duration(0), cfg.Engine.Timeout())
	assert.InDelta(t, 1000, cfg.Engine.VsThreshold, 0.001)
	assert.Equal(t, ".", cfg.Cache.Dir)
	assert.Equal(t, "cvmgrid.db", cfg.Cache.CatalogPath)
	assert.False(t, cfg.Cache.Refresh)
	assert.False(t, cfg.Grid.NorthFirst)
	assert.Equal(t, "d", cfg.Colorbar.Scale)
	assert.Equal(t, 5, cfg.Colorbar.Steps)
	assert.Equal(t, 5, cfg.Colorbar.SubSteps)
	assert.InDelta(t, 2.5, cfg.Colorbar.Gate, 0.001)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrentPlans)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
engine:
  install_dir: /opt/ucvm
  model: cvmh
  timeout_secs: 30
log:
  level: debug
  format: console
export:
  geojson: true
batch:
  max_concurrent_plans: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/opt/ucvm", cfg.Engine.InstallDir)
	assert.Equal(t, "cvmh", cfg.Engine.Model)
	assert.Equal(t, 30*time.Second, cfg.Engine.Timeout())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.Export.GeoJSON)
	assert.False(t, cfg.Export.XLSX)
	assert.Equal(t, 2, cfg.Batch.MaxConcurrentPlans)
	// Defaults still apply for unset values
	assert.Equal(t, 5, cfg.Colorbar.Steps)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
engine:
  model: cvmh
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("CVMGRID_ENGINE_MODEL", "cvms5")
	t.Setenv("CVMGRID_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "cvms5", cfg.Engine.Model)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CVMGRID_SERVER_PORT", "3000")
	t.Setenv("CVMGRID_CACHE_REFRESH", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.True(t, cfg.Cache.Refresh)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("engine: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
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

func validConfig() *Config {
	return &Config{
		Cache:    CacheConfig{CatalogPath: "cvmgrid.db"},
		Colorbar: ColorbarConfig{Steps: 5, SubSteps: 5},
		Batch:    BatchConfig{MaxConcurrentPlans: 1},
		Server:   ServerConfig{Port: 8080},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"negative timeout", func(c *Config) { c.Engine.TimeoutSecs = -1 }, true},
		{"negative rate", func(c *Config) { c.Engine.RatePerSec = -2 }, true},
		{"negative steps", func(c *Config) { c.Colorbar.Steps = -1 }, true},
		{"zero concurrency", func(c *Config) { c.Batch.MaxConcurrentPlans = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestValidateServe_ValidPort(t *testing.T) {
	assert.NoError(t, validConfig().ValidateServe())
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 70000
	assert.Error(t, cfg.ValidateServe())

	cfg = validConfig()
	cfg.Cache.CatalogPath = ""
	assert.Error(t, cfg.ValidateServe())
}
