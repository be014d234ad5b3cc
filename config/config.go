package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port string `envconfig:"PORT" default:"8080"`

	// Database. Leave empty to run with the in-memory quota store and no
	// persistence (local development only).
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	// Cache
	RedisAddr string `envconfig:"REDIS_ADDR"`

	// Credential pools. One upstream API key per pool; all three are
	// required when serving real traffic.
	WorkshopAPIKey string `envconfig:"WORKSHOP_API_KEY"`
	BasicAPIKey    string `envconfig:"BASIC_API_KEY"`
	PremiumAPIKey  string `envconfig:"PREMIUM_API_KEY"`

	// Optional override for the upstream endpoint (tests, proxies).
	ProviderBaseURL string `envconfig:"PROVIDER_BASE_URL"`

	// Quota
	DailyFreeLimit int `envconfig:"DAILY_FREE_LIMIT" default:"5"`
	BurstLimitRPM  int `envconfig:"BURST_LIMIT_RPM" default:"30"`

	// Degraded-path response when the upstream provider fails.
	FallbackMessage string `envconfig:"FALLBACK_MESSAGE"`

	// Observability
	OTELExporterType     string `envconfig:"OTEL_EXPORTER_TYPE" default:"stdout"` // "stdout" or "otlp"
	OTELExporterEndpoint string `envconfig:"OTEL_EXPORTER_ENDPOINT" default:"localhost:4317"`

	// Logging
	Env string `envconfig:"ENV" default:"development"`
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if cfg.WorkshopAPIKey == "" {
		return nil, fmt.Errorf("WORKSHOP_API_KEY is required")
	}
	if cfg.BasicAPIKey == "" {
		return nil, fmt.Errorf("BASIC_API_KEY is required")
	}
	if cfg.PremiumAPIKey == "" {
		return nil, fmt.Errorf("PREMIUM_API_KEY is required")
	}
	if cfg.DailyFreeLimit <= 0 {
		return nil, fmt.Errorf("DAILY_FREE_LIMIT must be positive")
	}

	return &cfg, nil
}
