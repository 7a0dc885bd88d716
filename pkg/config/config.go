// Package config loads the application configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Ben-Nachmanson/Fill-Flow/pkg/postgresql"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/redisstream"
)

// Config represents the application configuration.
type Config struct {
	App    AppConfig          `envPrefix:"APP_"`
	DB     postgresql.Config  `envPrefix:"DB_"`
	Redis  redisstream.Config `envPrefix:"REDIS_"`
	Stream StreamConfig       `envPrefix:"STREAM_"`
	Worker WorkerConfig       `envPrefix:"WORKER_"`
}

// AppConfig represents the application configuration.
type AppConfig struct {
	Name        string `env:"NAME" envDefault:"fill-flow"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// StreamConfig configures the orders stream and its consumer group.
type StreamConfig struct {
	Name            string        `env:"NAME" envDefault:"orders-stream"`
	Group           string        `env:"GROUP" envDefault:"fillers"`
	Consumer        string        `env:"CONSUMER" envDefault:"worker-1"`
	BatchSize       int64         `env:"BATCH_SIZE" envDefault:"10"`
	BlockTimeout    time.Duration `env:"BLOCK_TIMEOUT" envDefault:"5s"`
	ClaimMinIdle    time.Duration `env:"CLAIM_MIN_IDLE" envDefault:"30s"`
	PendingInterval time.Duration `env:"PENDING_INTERVAL" envDefault:"30s"`
	MaxDeliveries   int64         `env:"MAX_DELIVERIES" envDefault:"10"`
}

// WorkerConfig configures the fill worker.
type WorkerConfig struct {
	SlippageBand float64 `env:"SLIPPAGE_BAND" envDefault:"0.001"`
}

// Load loads the configuration from the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}
