// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and environment variables.
// - Validation errors wrap ErrInvalidConfig so callers can use errors.Is.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Supported repository backends.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogJSON switches log output to JSON.
	LogJSON bool `koanf:"log_json"`
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Backend selects the player store: memory, mongo or redis.
	Backend string `koanf:"backend"`
	// SeedDemo preloads a few demo players into the memory backend.
	SeedDemo bool `koanf:"seed_demo"`

	// MongoURI is the connection string of the document store.
	MongoURI string `koanf:"mongo_uri"`
	// MongoDatabase and MongoCollection locate the players collection.
	MongoDatabase   string `koanf:"mongo_database"`
	MongoCollection string `koanf:"mongo_collection"`
	// MongoTimeoutMS bounds connect and per-operation time.
	MongoTimeoutMS int `koanf:"mongo_timeout_ms"`

	// RedisAddr, RedisPassword and RedisDB configure the redis client.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	// RedisKey is the sorted set holding the players.
	RedisKey string `koanf:"redis_key"`

	// CORSAllowedOrigins lists origins allowed by CORS; "*" allows any.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		Backend:            BackendMemory,
		MongoURI:           "mongodb://localhost:27017",
		MongoDatabase:      "player-ranking",
		MongoCollection:    "players",
		MongoTimeoutMS:     5000,
		RedisAddr:          "localhost:6379",
		RedisKey:           "players",
		CORSAllowedOrigins: []string{"*"},
	}
}

// MongoTimeout returns MongoTimeoutMS as a duration.
func (c *Config) MongoTimeout() time.Duration {
	return time.Duration(c.MongoTimeoutMS) * time.Millisecond
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}

	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendMemory:
	case BackendMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" || c.MongoCollection == "" {
			return fmt.Errorf("%w: mongo backend requires mongo_uri, mongo_database and mongo_collection", ErrInvalidConfig)
		}
		if c.MongoTimeoutMS <= 0 {
			return fmt.Errorf("%w: mongo_timeout_ms must be positive", ErrInvalidConfig)
		}
	case BackendRedis:
		if c.RedisAddr == "" || c.RedisKey == "" {
			return fmt.Errorf("%w: redis backend requires redis_addr and redis_key", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	return nil
}
