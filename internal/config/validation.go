package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("cronspec", validateCronSpec)
	_ = v.RegisterValidation("season", validateSeason)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateCronSpec validates a standard five-field cron expression or descriptor
func validateCronSpec(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// validateSeason accepts a four-digit year or "current"
func validateSeason(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "current" {
		return true
	}
	year, err := strconv.Atoi(s)
	return err == nil && len(s) == 4 && year >= 1950
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Upstream.RetryWaitMax < cfg.Upstream.RetryWaitMin {
		return fmt.Errorf("upstream retry_wait_max cannot be less than retry_wait_min")
	}

	if cfg.Pagination.MaxStagger != 0 && cfg.Pagination.MaxStagger < cfg.Pagination.Stagger {
		return fmt.Errorf("pagination max_stagger cannot be less than stagger")
	}

	switch cfg.Cache.Backend {
	case "postgres":
		if cfg.Database.Host == "" || cfg.Database.Name == "" || cfg.Database.User == "" {
			return fmt.Errorf("postgres cache backend requires database host, name and user")
		}
		if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
			return fmt.Errorf("max_idle_connections cannot exceed max_connections")
		}
	case "redis":
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("redis cache backend requires redis addr")
		}
	}

	if cfg.Sync.Schedule != "" {
		if cfg.Sync.Season == "" {
			return fmt.Errorf("scheduled sync requires sync season")
		}
		if len(cfg.Sync.Drivers) == 0 && len(cfg.Sync.Constructors) == 0 {
			return fmt.Errorf("scheduled sync requires at least one driver or constructor")
		}
	}

	for i := 1; i < len(cfg.Aggregation.DistributionEdges); i++ {
		if cfg.Aggregation.DistributionEdges[i] <= cfg.Aggregation.DistributionEdges[i-1] {
			return fmt.Errorf("aggregation distribution_edges must be strictly increasing")
		}
	}

	if cfg.IsProduction() {
		if cfg.Cache.Backend == "postgres" && cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
		}
		if cfg.Cache.Backend == "memory" {
			return fmt.Errorf("production environment requires a persistent cache backend")
		}
	}

	if cfg.Secrets.Enabled && (cfg.Secrets.Region == "" || cfg.Secrets.SecretName == "") {
		return fmt.Errorf("secrets overlay requires region and secret_name")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "url":
			fmt.Fprintf(&b, "- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			fmt.Fprintf(&b, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&b, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&b, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "cronspec":
			fmt.Fprintf(&b, "- Field '%s' must be a valid cron expression, got '%v'\n", field, value)
		case "season":
			fmt.Fprintf(&b, "- Field '%s' must be a four-digit year or 'current', got '%v'\n", field, value)
		case "oneof":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v'\n", field, value)
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}
