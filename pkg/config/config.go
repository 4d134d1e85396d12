package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MustLoad loads the configuration from environment variables and .env file.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load() // Load environment variables from .env file

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and .env file.
func Load[T any](cfg T) error {
	_ = godotenv.Load() // missing .env file is fine, env vars may be set directly

	if err := env.Parse(cfg); err != nil {
		return err
	}

	return nil
}

// Config holds the configuration for the application
type Config struct {
	Pair                 string                `env:"PAIR,required"` // Trading pair, e.g., BTC/USD
	LogLevel             string                `env:"LOG_LEVEL" envDefault:"info"`
	KafkaConfig          `envPrefix:"KAFKA_"`  // Order stream configuration
	TradePublisherConfig `envPrefix:"TRADES_"` // Trade publisher configuration
	RedisConfig          `envPrefix:"REDIS_"`  // Redis configuration
	EngineConfig         `envPrefix:"ENGINE_"` // Engine tuning
}

// KafkaConfig holds the configuration for the order stream consumer.
type KafkaConfig struct {
	Topic   string   `env:"TOPIC,required"`
	GroupID string   `env:"GROUP_ID" envDefault:"default_group"`
	Brokers []string `env:"BROKER,required"`
}

// TradePublisherConfig holds the configuration for the trade event producer.
type TradePublisherConfig struct {
	Topic   string   `env:"TOPIC,required"`
	Brokers []string `env:"BROKER,required"`
}

// RedisConfig holds the configuration for Redis client.
type RedisConfig struct {
	Addrs    string `env:"ADDRESS,required"` // Comma-separated list of Redis addresses
	Password string `env:"PASSWORD" envDefault:""`
	Username string `env:"USERNAME" envDefault:""`
	DB       int    `env:"DB" envDefault:"0"`
}

// EngineConfig holds tuning knobs for the matching engine.
type EngineConfig struct {
	SnapshotInterval    time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"30s"`
	SnapshotOffsetDelta int64         `env:"SNAPSHOT_OFFSET_DELTA" envDefault:"1000"`
	CommandBuffer       int           `env:"COMMAND_BUFFER" envDefault:"1024"`
}
