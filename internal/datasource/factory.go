package datasource

import (
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/paddock/internal/config"
	"github.com/yourusername/paddock/internal/pagination"
)

// Factory creates results sources based on configuration
type Factory struct {
	logger *logrus.Entry
	config *config.Config
}

// NewFactory creates a new data source factory
func NewFactory(cfg *config.Config, logger *logrus.Entry) *Factory {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Factory{
		logger: logger,
		config: cfg,
	}
}

// HTTPClientConfig maps upstream configuration onto client settings
func (f *Factory) HTTPClientConfig() HTTPClientConfig {
	up := f.config.Upstream
	cfg := DefaultHTTPClientConfig()
	cfg.Timeout = up.Timeout
	cfg.MaxRetries = up.MaxRetries
	cfg.RetryWaitMin = up.RetryWaitMin
	cfg.RetryWaitMax = up.RetryWaitMax
	cfg.RateLimit = up.RateLimit
	cfg.Burst = up.Burst
	cfg.CircuitBreakerMax = up.CircuitBreakerMax
	cfg.CircuitBreakerReset = up.CircuitBreakerReset
	if up.UserAgent != "" {
		cfg.UserAgent = up.UserAgent
	}
	return cfg
}

// PaginationConfig maps pagination configuration onto batch fetcher settings
func (f *Factory) PaginationConfig() pagination.Config {
	p := f.config.Pagination
	return pagination.Config{
		PageSize:    p.PageSize,
		Concurrency: p.Concurrency,
		Stagger:     p.Stagger,
		MaxStagger:  p.MaxStagger,
		Timeout:     p.RequestTimeout,
		Adaptive:    p.Adaptive,
	}
}

// NewResultsSource creates the configured results API client
func (f *Factory) NewResultsSource() (*ErgastClient, error) {
	if f.config == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if _, err := url.ParseRequestURI(f.config.Upstream.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid upstream base url: %w", err)
	}

	httpClient := NewRateLimitedHTTPClient(f.HTTPClientConfig(), f.logger)

	var cache *ResponseCache
	if ttl := f.config.Upstream.ResponseCacheTTL; ttl > 0 {
		cache = NewResponseCache(ttl, f.config.Upstream.ResponseCacheMaxSize)
	}

	client := NewErgastClient(httpClient, f.config.Upstream.BaseURL, f.PaginationConfig(), cache, f.logger)
	if f.config.Upstream.Name != "" {
		client.name = f.config.Upstream.Name
	}

	f.logger.WithFields(logrus.Fields{
		"source":      client.Name(),
		"base_url":    f.config.Upstream.BaseURL,
		"concurrency": f.config.Pagination.Concurrency,
		"cached":      cache != nil,
	}).Info("Created results source")

	return client, nil
}
