package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Engine   EngineConfig   `yaml:"engine" mapstructure:"engine"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Grid     GridConfig     `yaml:"grid" mapstructure:"grid"`
	Colorbar ColorbarConfig `yaml:"colorbar" mapstructure:"colorbar"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// EngineConfig locates the query engine install. Empty directories are
// derived from InstallDir.
type EngineConfig struct {
	InstallDir  string  `yaml:"install_dir" mapstructure:"install_dir"`
	BinDir      string  `yaml:"bin_dir" mapstructure:"bin_dir"`
	ConfigFile  string  `yaml:"config_file" mapstructure:"config_file"`
	ModelDir    string  `yaml:"model_dir" mapstructure:"model_dir"`
	Model       string  `yaml:"model" mapstructure:"model"`
	ZRange      string  `yaml:"zrange" mapstructure:"zrange"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst   int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	VsThreshold float64 `yaml:"vs_threshold" mapstructure:"vs_threshold"`
}

// Timeout returns the per-query timeout, zero for none.
func (e EngineConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSecs) * time.Second
}

// CacheConfig configures artifact storage.
type CacheConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	CatalogPath string `yaml:"catalog_path" mapstructure:"catalog_path"`
	Refresh     bool   `yaml:"refresh" mapstructure:"refresh"`
}

// GridConfig configures point-grid generation.
type GridConfig struct {
	NorthFirst bool `yaml:"north_first" mapstructure:"north_first"`
}

// ColorbarConfig configures bound and tick planning.
type ColorbarConfig struct {
	Scale    string  `yaml:"scale" mapstructure:"scale"`
	Steps    int     `yaml:"steps" mapstructure:"steps"`
	SubSteps int     `yaml:"sub_steps" mapstructure:"sub_steps"`
	Gate     float64 `yaml:"gate" mapstructure:"gate"`
}

// ExportConfig selects the extra files written next to each artifact.
type ExportConfig struct {
	GeoJSON   bool `yaml:"geojson" mapstructure:"geojson"`
	Shapefile bool `yaml:"shapefile" mapstructure:"shapefile"`
	XLSX      bool `yaml:"xlsx" mapstructure:"xlsx"`
}

// BatchConfig configures batch plan processing.
type BatchConfig struct {
	MaxConcurrentPlans int `yaml:"max_concurrent_plans" mapstructure:"max_concurrent_plans"`
}

// ServerConfig configures the artifact server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CVMGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("engine.install_dir", "..")
	v.SetDefault("engine.bin_dir", "")
	v.SetDefault("engine.config_file", "")
	v.SetDefault("engine.model_dir", "")
	v.SetDefault("engine.model", "cvmsi")
	v.SetDefault("engine.zrange", "")
	v.SetDefault("engine.timeout_secs", 0)
	v.SetDefault("engine.rate_per_sec", 0)
	v.SetDefault("engine.rate_burst", 1)
	v.SetDefault("engine.vs_threshold", 1000)
	v.SetDefault("cache.dir", ".")
	v.SetDefault("cache.catalog_path", "cvmgrid.db")
	v.SetDefault("cache.refresh", false)
	v.SetDefault("grid.north_first", false)
	v.SetDefault("colorbar.scale", "d")
	v.SetDefault("colorbar.steps", 5)
	v.SetDefault("colorbar.sub_steps", 5)
	v.SetDefault("colorbar.gate", 2.5)
	v.SetDefault("export.geojson", false)
	v.SetDefault("export.shapefile", false)
	v.SetDefault("export.xlsx", false)
	v.SetDefault("batch.max_concurrent_plans", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks settings every command depends on.
func (c *Config) Validate() error {
	if c.Engine.TimeoutSecs < 0 {
		return eris.Errorf("config: engine.timeout_secs must not be negative, got %d", c.Engine.TimeoutSecs)
	}
	if c.Engine.RatePerSec < 0 {
		return eris.Errorf("config: engine.rate_per_sec must not be negative, got %v", c.Engine.RatePerSec)
	}
	if c.Colorbar.Steps < 0 || c.Colorbar.SubSteps < 0 {
		return eris.Errorf("config: colorbar steps must not be negative, got %d/%d", c.Colorbar.Steps, c.Colorbar.SubSteps)
	}
	if c.Batch.MaxConcurrentPlans < 1 {
		return eris.Errorf("config: batch.max_concurrent_plans must be at least 1, got %d", c.Batch.MaxConcurrentPlans)
	}
	return nil
}

// ValidateServe checks the settings required by the serve command.
func (c *Config) ValidateServe() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Cache.CatalogPath == "" {
		return eris.New("config: serve requires cache.catalog_path")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
