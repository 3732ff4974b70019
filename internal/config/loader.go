package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PADDOCK_APP_LOG_LEVEL
const EnvPrefix = "PADDOCK"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// Set environment variable prefix
	v.SetEnvPrefix(EnvPrefix)

	// Enable automatic binding of environment variables
	v.AutomaticEnv()

	// Replace dots with underscores in environment variable names
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing config file is not an error; defaults and environment apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "paddock")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("upstream.name", "jolpica")
	v.SetDefault("upstream.base_url", "https://api.jolpi.ca/ergast/f1")
	v.SetDefault("upstream.timeout", "15s")
	v.SetDefault("upstream.max_retries", 1)
	v.SetDefault("upstream.retry_wait_min", "500ms")
	v.SetDefault("upstream.retry_wait_max", "5s")
	v.SetDefault("upstream.rate_limit", 4.0)
	v.SetDefault("upstream.burst", 1)
	v.SetDefault("upstream.circuit_breaker_max", 5)
	v.SetDefault("upstream.circuit_breaker_reset", "30s")
	v.SetDefault("upstream.user_agent", "paddock/1.0")
	v.SetDefault("upstream.response_cache_ttl", "1h")
	v.SetDefault("upstream.response_cache_max_size", 2000)

	v.SetDefault("pagination.page_size", 100)
	v.SetDefault("pagination.concurrency", 3)
	v.SetDefault("pagination.stagger", "100ms")
	v.SetDefault("pagination.max_stagger", "2s")
	v.SetDefault("pagination.request_timeout", "15s")
	v.SetDefault("pagination.adaptive", true)

	v.SetDefault("sync.round_interval", "100ms")
	v.SetDefault("sync.track_laps_led", true)
	v.SetDefault("sync.schedule", "")
	v.SetDefault("sync.season", "")
	v.SetDefault("sync.drivers", []string{})
	v.SetDefault("sync.constructors", []string{})

	v.SetDefault("cache.backend", "memory")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "paddock")
	v.SetDefault("database.user", "paddock")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "paddock")

	v.SetDefault("aggregation.points_finish_policy", "points")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("secrets.enabled", false)
}

// ReloadFromEnv reloads the configuration from PADDOCK_CONFIG_PATH when set
func ReloadFromEnv(cfg *Config) error {
	if envPath := os.Getenv(EnvPrefix + "_CONFIG_PATH"); envPath != "" {
		newCfg, err := LoadWithDefaults(envPath)
		if err != nil {
			return err
		}
		*cfg = *newCfg
	}

	return nil
}
