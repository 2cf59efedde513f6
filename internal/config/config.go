package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Insee      InseeConfig      `yaml:"insee" mapstructure:"insee"`
	Sirene     SireneConfig     `yaml:"sirene" mapstructure:"sirene"`
	GeoAPI     GeoAPIConfig     `yaml:"geo_api" mapstructure:"geo_api"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Projection ProjectionConfig `yaml:"projection" mapstructure:"projection"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// InseeConfig holds the INSEE API credential and the "données locales" endpoint.
type InseeConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Geography vintage used in dataset identifiers, e.g. GEO2023RP2020.
	CensusVintage string `yaml:"census_vintage" mapstructure:"census_vintage"`
	IncomeVintage string `yaml:"income_vintage" mapstructure:"income_vintage"`
}

// SireneConfig configures the establishment search endpoint.
type SireneConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	PageSize int    `yaml:"page_size" mapstructure:"page_size"`
}

// GeoAPIConfig configures the commune boundary endpoint.
type GeoAPIConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FetchConfig controls the per-code request fan-out and its retry policy.
type FetchConfig struct {
	Policy           string  `yaml:"policy" mapstructure:"policy"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	SerialPauseMs    int     `yaml:"serial_pause_ms" mapstructure:"serial_pause_ms"`
	MaxConcurrency   int     `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SerialPause returns the configured inter-request pause.
func (f FetchConfig) SerialPause() time.Duration {
	return time.Duration(f.SerialPauseMs) * time.Millisecond
}

// Timeout returns the per-request timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// ProjectionConfig selects the source coordinate system of establishment coordinates.
type ProjectionConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
}

// StoreConfig configures the response cache backend.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// CacheTTL returns how long a cached response stays valid.
func (s StoreConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLHours) * time.Hour
}

// ServerConfig configures the JSON API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("MEDLIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("insee.base_url", "https://api.insee.fr/donnees-locales/V0.1/donnees")
	v.SetDefault("insee.census_vintage", "GEO2023RP2020")
	v.SetDefault("insee.income_vintage", "GEO2023FILO2020_BV")
	v.SetDefault("sirene.base_url", "https://api.insee.fr/entreprises/sirene/V3.11")
	v.SetDefault("sirene.page_size", 1000)
	v.SetDefault("geo_api.base_url", "https://geo.api.gouv.fr")
	v.SetDefault("fetch.policy", "concurrent")
	v.SetDefault("fetch.max_attempts", 5)
	v.SetDefault("fetch.initial_backoff_ms", 1000)
	v.SetDefault("fetch.max_backoff_ms", 30000)
	v.SetDefault("fetch.multiplier", 2.0)
	v.SetDefault("fetch.serial_pause_ms", 2000)
	v.SetDefault("fetch.max_concurrency", 0)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("projection.name", "lambert93")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "medlin-cache.db")
	v.SetDefault("store.cache_ttl_hours", 24)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that the settings needed by the given mode are present.
// Modes: "stats", "etablissements", "serve", "cache".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Fetch.Policy {
	case "concurrent", "serial":
	default:
		errs = append(errs, fmt.Sprintf("fetch.policy must be concurrent or serial, got %q", c.Fetch.Policy))
	}
	if c.Fetch.MaxAttempts < 1 {
		errs = append(errs, "fetch.max_attempts must be >= 1")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres", "none":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite, postgres or none, got %q", c.Store.Driver))
	}

	switch mode {
	case "stats", "etablissements":
		if c.Insee.Token == "" {
			errs = append(errs, "insee.token is required")
		}
	case "serve":
		if c.Insee.Token == "" {
			errs = append(errs, "insee.token is required")
		}
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "cache":
		if c.Store.Driver == "none" {
			errs = append(errs, "store.driver is none, no cache to manage")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
