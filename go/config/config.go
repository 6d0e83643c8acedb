// Package config reads the server configuration from the environment.
// Every value has a default; a malformed value is fatal at startup.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full environment-derived configuration.
type Config struct {
	// FrontendURL is the sole CORS origin besides LocustURL.
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:5173"`

	// LocustURL is the load generator's origin.
	LocustURL string `envconfig:"LOCUST_URL" default:"http://localhost:8081"`

	// GridRadius is the hex grid radius; the grid holds 1 + 3R(R+1)
	// tiles.
	GridRadius uint32 `envconfig:"GRID_RADIUS" default:"80"`

	// GridBatchDiv partitions the disk into GridBatchDiv^2 spectator
	// batches.
	GridBatchDiv uint8 `envconfig:"GRID_BATCH_DIV" default:"8"`

	// UseBenchmarkData pre-owns the entire grid by a synthetic user at
	// startup, for load testing.
	UseBenchmarkData bool `envconfig:"USE_BENCHMARK_DATA" default:"false"`

	// RedisURL is the store endpoint.
	RedisURL string `envconfig:"REDIS_URL" default:"redis://127.0.0.1:6379"`

	// WithRedisTests switches store tests from the in-memory mock to the
	// live store. Only tests read it.
	WithRedisTests bool `envconfig:"WITH_REDIS_TESTS" default:"false"`
}

// FromEnv parses the configuration out of the process environment.
func FromEnv() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("reading config from environment: %w", err)
	}
	return &c, nil
}
