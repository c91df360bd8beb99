package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	// ReturnWindow bounds how long after delivery an order may be returned.
	ReturnWindow time.Duration `env:"RETURN_WINDOW, default=72h"`
	// AssignWorkers sizes the assignment dispatcher's worker pool.
	AssignWorkers int `env:"ASSIGN_WORKERS, default=8"`

	Agents AgentPoolConfig
	Mongo  MongoConfig
	Redis  RedisConfig
}

// AgentPoolConfig selects how delivery agents drop out of the availability
// pool: "heartbeat" expires an agent whose lease lapses, "manual" keeps the
// agent available until explicitly toggled off.
type AgentPoolConfig struct {
	Mode         string        `env:"AGENT_AVAILABILITY_MODE, default=heartbeat"`
	HeartbeatTTL time.Duration `env:"AGENT_HEARTBEAT_TTL,     default=90s"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=commerce"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Agents.Mode != "heartbeat" && cfg.Agents.Mode != "manual" {
		return nil, fmt.Errorf("config: unknown AGENT_AVAILABILITY_MODE %q", cfg.Agents.Mode)
	}
	return &cfg, nil
}
