package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv string
	Port   string

	DatabaseURL string
	RedisURL    string

	GatewayBaseURL string
	GatewayAPIKey  string

	JWTSecret          string
	SessionTTL         time.Duration
	CORSAllowedOrigins []string

	VATBps          int
	PriceCategory   string
	SaleTTL         time.Duration
	CacheTTL        time.Duration
	AnalyticsTTL    time.Duration
	IdempotencyTTL  time.Duration
	OfflineMaxTries int

	OutboundTimeout    time.Duration
	RetryBase          time.Duration
	RetryMaxAttempts   int
	RetryJitterPercent float64

	CircuitMinRequests int
	CircuitFailureRate float64
	CircuitOpenFor     time.Duration

	RateLimitPerMinute int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv: valueOrDefault(k.String("APP_ENV"), "development"),
		Port:   valueOrDefault(k.String("PORT"), "8080"),

		DatabaseURL: k.String("DATABASE_URL"),
		RedisURL:    k.String("REDIS_URL"),

		GatewayBaseURL: k.String("GATEWAY_BASE_URL"),
		GatewayAPIKey:  k.String("GATEWAY_API_KEY"),

		JWTSecret:          k.String("JWT_SECRET"),
		SessionTTL:         parseDuration(k.String("SESSION_TTL"), "12h"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		VATBps:          intOrDefault(k, "VAT_BPS", 1500),
		PriceCategory:   valueOrDefault(k.String("PRICE_CATEGORY"), "A"),
		SaleTTL:         parseDuration(k.String("SALE_TTL"), "4h"),
		CacheTTL:        parseDuration(k.String("CACHE_TTL"), "5m"),
		AnalyticsTTL:    parseDuration(k.String("ANALYTICS_CACHE_TTL"), "10m"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		OfflineMaxTries: intOrDefault(k, "OFFLINE_MAX_ATTEMPTS", 20),

		OutboundTimeout:    parseDuration(k.String("OUTBOUND_TIMEOUT"), "5s"),
		RetryBase:          parseDuration(k.String("RETRY_BASE"), "200ms"),
		RetryMaxAttempts:   intOrDefault(k, "RETRY_MAX_ATTEMPTS", 3),
		RetryJitterPercent: floatOrDefault(k, "RETRY_JITTER_PERCENT", 0.2),

		CircuitMinRequests: intOrDefault(k, "CIRCUIT_MIN_REQUESTS", 10),
		CircuitFailureRate: floatOrDefault(k, "CIRCUIT_FAILURE_RATE", 0.5),
		CircuitOpenFor:     parseDuration(k.String("CIRCUIT_OPEN_FOR"), "30s"),

		RateLimitPerMinute: intOrDefault(k, "RATE_LIMIT_PER_MINUTE", 300),
	}

	if cfg.GatewayBaseURL == "" {
		return nil, errors.New("GATEWAY_BASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// MigrateURL rewrites the database URL for the pgx migrate driver.
func (c *Config) MigrateURL() string {
	url := c.DatabaseURL
	if strings.HasPrefix(url, "postgres://") {
		return "pgx5://" + strings.TrimPrefix(url, "postgres://")
	}
	if strings.HasPrefix(url, "postgresql://") {
		return "pgx5://" + strings.TrimPrefix(url, "postgresql://")
	}
	return url
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func intOrDefault(k *koanf.Koanf, key string, fallback int) int {
	if strings.TrimSpace(k.String(key)) == "" {
		return fallback
	}
	return k.Int(key)
}

func floatOrDefault(k *koanf.Koanf, key string, fallback float64) float64 {
	if strings.TrimSpace(k.String(key)) == "" {
		return fallback
	}
	return k.Float64(key)
}
