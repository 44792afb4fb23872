// Package config centralises configuration parsing for the signup service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config captures runtime configuration values for the signup service.
type Config struct {
	HTTPAddress        string        `env:"HTTP_ADDRESS" envDefault:":8080"`
	MetricsAddress     string        `env:"METRICS_ADDRESS" envDefault:":9102"` // Consumer metrics listener.
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat          string        `env:"LOG_FORMAT" envDefault:"json"`
	SeedFile           string        `env:"SEED_FILE"` // Empty means the embedded catalogue.
	AllowedOrigin      string        `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:5173"`
	PostgresURL        string        `env:"POSTGRES_URL"` // Empty keeps the outbox in memory.
	KafkaBrokers       []string      `env:"KAFKA_BROKERS" envSeparator:","`
	RosterTopic        string        `env:"ROSTER_TOPIC" envDefault:"activity_roster_events"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"25"`
	ConsumerGroupID    string        `env:"CONSUMER_GROUP_ID" envDefault:"activity-roster-audit"`
	OTelEndpoint       string        `env:"OTEL_ENDPOINT"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Load reads an optional .env file and then environment variables into Config,
// applying defaults suited to local dev.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment into Config without touching .env files.
func Parse() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.KafkaBrokers = trimEmpty(cfg.KafkaBrokers)

	if cfg.OutboxBatchSize <= 0 {
		return Config{}, fmt.Errorf("OUTBOX_BATCH_SIZE must be > 0, got %d", cfg.OutboxBatchSize)
	}
	if cfg.OutboxPollInterval <= 0 {
		return Config{}, fmt.Errorf("OUTBOX_POLL_INTERVAL must be > 0, got %s", cfg.OutboxPollInterval)
	}
	return cfg, nil
}

func trimEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
