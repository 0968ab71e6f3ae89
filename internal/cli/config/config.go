package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conduit-lang/metaregistry/internal/diagnostics"
	"github.com/conduit-lang/metaregistry/internal/logging"
	"github.com/conduit-lang/metaregistry/internal/providers/core"
	"github.com/conduit-lang/metaregistry/runtime/registry"
)

// EnvPrefix prefixes environment overrides, e.g. METAREG_LOG_LEVEL.
const EnvPrefix = "METAREG"

// Config represents the metareg configuration
type Config struct {
	Registry    RegistryConfig    `mapstructure:"registry"`
	Constraints ConstraintsConfig `mapstructure:"constraints"`
	Health      HealthConfig      `mapstructure:"health"`
	Log         LogConfig         `mapstructure:"log"`
	Tracing     TracingConfig     `mapstructure:"tracing"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// RegistryConfig represents type registry configuration
type RegistryConfig struct {
	StrictDuplicates bool          `mapstructure:"strict_duplicates"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
}

// ConstraintsConfig represents constraint engine configuration
type ConstraintsConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	DisabledTypes []string `mapstructure:"disabled_types"`
}

// HealthConfig represents health check configuration
type HealthConfig struct {
	RequiredTypes []string    `mapstructure:"required_types"`
	Sinks         SinksConfig `mapstructure:"sinks"`
}

// SinksConfig represents health report sink configuration
type SinksConfig struct {
	Redis RedisSinkConfig `mapstructure:"redis"`
	SQL   SQLSinkConfig   `mapstructure:"sql"`
}

// RedisSinkConfig represents the Redis sink
type RedisSinkConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
	History  int    `mapstructure:"history"`
}

// SQLSinkConfig represents the SQL sink
type SQLSinkConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
	Table   string `mapstructure:"table"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// TracingConfig represents tracing configuration
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	baseTypes := core.BaseTypes()
	required := make([]string, len(baseTypes))
	for i, id := range baseTypes {
		required[i] = id.QualifiedName()
	}
	redis := diagnostics.DefaultRedisConfig()

	v.SetDefault("registry.strict_duplicates", false)
	v.SetDefault("registry.cache_ttl", time.Duration(0))
	v.SetDefault("constraints.enabled", true)
	v.SetDefault("constraints.disabled_types", []string{})
	v.SetDefault("health.required_types", required)
	v.SetDefault("health.sinks.redis.enabled", false)
	v.SetDefault("health.sinks.redis.addr", redis.Addr)
	v.SetDefault("health.sinks.redis.password", "")
	v.SetDefault("health.sinks.redis.db", 0)
	v.SetDefault("health.sinks.redis.key", redis.Key)
	v.SetDefault("health.sinks.redis.history", redis.History)
	v.SetDefault("health.sinks.sql.enabled", false)
	v.SetDefault("health.sinks.sql.driver", "sqlite3")
	v.SetDefault("health.sinks.sql.dsn", "")
	v.SetDefault("health.sinks.sql.table", diagnostics.DefaultTable)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.development", false)
	v.SetDefault("tracing.enabled", false)
}

// Load loads the configuration from path, or from metareg.yml / metareg.yaml in the
// current directory when path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("metareg")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.File = v.ConfigFileUsed()

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// RequiredTypeIDs parses Health.RequiredTypes.
func (c *Config) RequiredTypeIDs() ([]registry.TypeID, error) {
	ids := make([]registry.TypeID, 0, len(c.Health.RequiredTypes))
	for _, name := range c.Health.RequiredTypes {
		id, err := registry.ParseTypeID(name)
		if err != nil {
			return nil, fmt.Errorf("health.required_types: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// RedisSink returns the Redis sink settings in the form the sink takes.
func (c *Config) RedisSink() diagnostics.RedisConfig {
	r := c.Health.Sinks.Redis
	return diagnostics.RedisConfig{Addr: r.Addr, Password: r.Password, DB: r.DB, Key: r.Key, History: r.History}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if cfg.Registry.CacheTTL < 0 {
		return fmt.Errorf("registry.cache_ttl must not be negative, got: %s", cfg.Registry.CacheTTL)
	}
	if _, err := cfg.RequiredTypeIDs(); err != nil {
		return err
	}

	redis := cfg.Health.Sinks.Redis
	if redis.Enabled {
		if redis.Addr == "" {
			return fmt.Errorf("health.sinks.redis.addr is required when the redis sink is enabled")
		}
		if redis.History < 1 {
			return fmt.Errorf("health.sinks.redis.history must be at least 1, got: %d", redis.History)
		}
	}

	sql := cfg.Health.Sinks.SQL
	if sql.Enabled {
		switch sql.Driver {
		case "sqlite3", "postgres", "pgx":
		default:
			return fmt.Errorf("health.sinks.sql.driver must be one of sqlite3, postgres, pgx, got: %s", sql.Driver)
		}
		if sql.DSN == "" {
			return fmt.Errorf("health.sinks.sql.dsn is required when the sql sink is enabled")
		}
	}
	return nil
}
