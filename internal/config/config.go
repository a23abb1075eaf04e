package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	pkgconfig "github.com/utafrali/EcommerceGo/storefront/pkg/config"
)

// Identity store backends.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds all configuration for the storefront core.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// UI bridge
	HTTPPort           int      `env:"STOREFRONT_HTTP_PORT" envDefault:"8090"`
	BridgeAllowedCIDRs []string `env:"STOREFRONT_BRIDGE_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`
	CORSOrigins        []string `env:"STOREFRONT_CORS_ORIGINS" envDefault:"*" envSeparator:","`

	// Storefront API
	APIBaseURL     string  `env:"STOREFRONT_API_BASE_URL" envDefault:"http://localhost:8000/api"`
	CDNBaseURL     string  `env:"STOREFRONT_CDN_BASE_URL" envDefault:"https://res.cloudinary.com/dvdhtcsfz"`
	HTTPTimeout    int     `env:"STOREFRONT_HTTP_TIMEOUT_SECONDS" envDefault:"15"`
	HTTPMaxRetries int     `env:"STOREFRONT_HTTP_MAX_RETRIES" envDefault:"2"`
	APIRateLimit   float64 `env:"STOREFRONT_API_RATE_LIMIT" envDefault:"20"`
	APIRateBurst   int     `env:"STOREFRONT_API_RATE_BURST" envDefault:"10"`

	// Circuit breaker around the storefront API
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"15"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Identity store
	StoreBackend   string `env:"STOREFRONT_STORE_BACKEND" envDefault:"redis"`
	InstallationID string `env:"STOREFRONT_INSTALLATION_ID" envDefault:"default"`
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass      string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`

	// Sync
	DiscardStaleFetches bool `env:"STOREFRONT_DISCARD_STALE_FETCHES" envDefault:"false"`

	// Kafka activity events; disabled when no brokers are set.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	cfg.CDNBaseURL = strings.TrimRight(cfg.CDNBaseURL, "/")
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	for name, raw := range map[string]string{
		"STOREFRONT_API_BASE_URL": c.APIBaseURL,
		"STOREFRONT_CDN_BASE_URL": c.CDNBaseURL,
	} {
		if raw == "" {
			return fmt.Errorf("%s is required", name)
		}
		u, err := url.ParseRequestURI(raw)
		if err != nil || u.Host == "" {
			return fmt.Errorf("invalid %s %q", name, raw)
		}
	}
	if c.HTTPTimeout < 1 {
		return fmt.Errorf("STOREFRONT_HTTP_TIMEOUT_SECONDS must be positive, got %d", c.HTTPTimeout)
	}
	if c.HTTPMaxRetries < 0 {
		return fmt.Errorf("STOREFRONT_HTTP_MAX_RETRIES must not be negative, got %d", c.HTTPMaxRetries)
	}
	if c.APIRateLimit < 0 {
		return fmt.Errorf("STOREFRONT_API_RATE_LIMIT must not be negative, got %f", c.APIRateLimit)
	}
	if c.APIRateLimit > 0 && c.APIRateBurst < 1 {
		return fmt.Errorf("STOREFRONT_API_RATE_BURST must be at least 1 when rate limiting, got %d", c.APIRateBurst)
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1.0 {
		return fmt.Errorf("CB_FAILURE_RATIO must be in (0.0, 1.0], got %f", c.CBFailureRatio)
	}
	switch c.StoreBackend {
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STOREFRONT_STORE_BACKEND must be %q or %q, got %q", StoreRedis, StoreMemory, c.StoreBackend)
	}
	if strings.TrimSpace(c.InstallationID) == "" {
		return fmt.Errorf("STOREFRONT_INSTALLATION_ID is required")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// HTTPTimeoutDuration returns the per-attempt storefront API timeout.
func (c *Config) HTTPTimeoutDuration() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

// KafkaEnabled reports whether activity events should be published.
func (c *Config) KafkaEnabled() bool {
	for _, b := range c.KafkaBrokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}
