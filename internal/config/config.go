// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime configuration for the vtt-api server
type Config struct {
	// HTTP
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Redis
	RedisAddr         string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPoolSize     int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RedisMinIdleConns int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	RedisUseTLS       bool   `env:"REDIS_USE_TLS" envDefault:"false"`

	// Identity
	JWTSigningSecret string `env:"JWT_SIGNING_SECRET,required"`

	// Realtime
	ConnectTimeout time.Duration `env:"REALTIME_CONNECT_TIMEOUT" envDefault:"10s"`

	// History fetch limits
	DiceHistoryLimit int `env:"DICE_HISTORY_LIMIT" envDefault:"50"`
}

// Load parses configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
