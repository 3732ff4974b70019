// Package config provides configuration management for paddock.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app" validate:"required"`
	Upstream    UpstreamConfig    `mapstructure:"upstream" validate:"required"`
	Pagination  PaginationConfig  `mapstructure:"pagination" validate:"required"`
	Sync        SyncConfig        `mapstructure:"sync" validate:"required"`
	Cache       CacheConfig       `mapstructure:"cache" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Aggregation AggregationConfig `mapstructure:"aggregation"`
	Metrics     MetricsConfig     `mapstructure:"metrics" validate:"required"`
	Secrets     SecretsConfig     `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// UpstreamConfig represents the results API connection
type UpstreamConfig struct {
	Name                 string        `mapstructure:"name" validate:"required"`
	BaseURL              string        `mapstructure:"base_url" validate:"required,url"`
	Timeout              time.Duration `mapstructure:"timeout" validate:"required,gt=0"`
	MaxRetries           int           `mapstructure:"max_retries" validate:"gte=0,lte=5"`
	RetryWaitMin         time.Duration `mapstructure:"retry_wait_min" validate:"gte=0"`
	RetryWaitMax         time.Duration `mapstructure:"retry_wait_max" validate:"gte=0"`
	RateLimit            float64       `mapstructure:"rate_limit" validate:"required,gt=0"`
	Burst                int           `mapstructure:"burst" validate:"required,gt=0"`
	CircuitBreakerMax    int           `mapstructure:"circuit_breaker_max" validate:"required,gt=0"`
	CircuitBreakerReset  time.Duration `mapstructure:"circuit_breaker_reset" validate:"required,gt=0"`
	UserAgent            string        `mapstructure:"user_agent"`
	ResponseCacheTTL     time.Duration `mapstructure:"response_cache_ttl" validate:"gte=0"`
	ResponseCacheMaxSize int           `mapstructure:"response_cache_max_size" validate:"gte=0"`
}

// PaginationConfig represents batch fetcher tuning
type PaginationConfig struct {
	PageSize       int           `mapstructure:"page_size" validate:"required,gt=0,lte=100"`
	Concurrency    int           `mapstructure:"concurrency" validate:"required,gt=0,lte=10"`
	Stagger        time.Duration `mapstructure:"stagger" validate:"gte=0"`
	MaxStagger     time.Duration `mapstructure:"max_stagger" validate:"gte=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"required,gt=0"`
	Adaptive       bool          `mapstructure:"adaptive"`
}

// SyncConfig represents incremental sync behaviour and scheduled re-sync targets
type SyncConfig struct {
	RoundInterval time.Duration `mapstructure:"round_interval" validate:"gte=0"`
	TrackLapsLed  bool          `mapstructure:"track_laps_led"`
	Schedule      string        `mapstructure:"schedule" validate:"omitempty,cronspec"`
	Season        string        `mapstructure:"season" validate:"omitempty,season"`
	Drivers       []string      `mapstructure:"drivers"`
	Constructors  []string      `mapstructure:"constructors"`
}

// CacheConfig selects the persistent cache store backend
type CacheConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=postgres redis memory"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"gte=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"gte=0"`
}

// RedisConfig represents the redis cache store connection
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db" validate:"gte=0"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// AggregationConfig represents season aggregation options
type AggregationConfig struct {
	PointsFinishPolicy string    `mapstructure:"points_finish_policy" validate:"omitempty,oneof=points top10"`
	DistributionEdges  []float64 `mapstructure:"distribution_edges"`
}

// MetricsConfig represents metrics and health server configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// SecretsConfig locates the optional AWS Secrets Manager overlay
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
