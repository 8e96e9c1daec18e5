// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"time"
)

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// minEaseFactor mirrors the SM-2 floor.
const minEaseFactor = 1.3

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the review submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of review workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many submission ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// StorageDriver selects "memory" or "sqlite".
	StorageDriver string `koanf:"storage_driver"`

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `koanf:"sqlite_path"`

	// DefaultEaseFactor is given to new cards.
	DefaultEaseFactor float64 `koanf:"default_ease_factor"`

	// BracketSeed makes pairings reproducible; 0 seeds from the clock.
	BracketSeed int64 `koanf:"bracket_seed"`

	// DueSweepIntervalSec is how often the due-card gauge is refreshed.
	DueSweepIntervalSec int `koanf:"due_sweep_interval_sec"`

	// RateLimitRPS and RateLimitBurst bound mutating requests per client.
	// RateLimitRPS <= 0 disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// MaxDueLimit caps GET /users/{id}/due?limit.
	MaxDueLimit int `koanf:"max_due_limit"`

	// MetricsNamespace and MetricsSubsystem prefix every exported metric,
	// e.g. quizarena_core_cards_created_total.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		QueueSize:           10_000,
		WorkerCount:         4,
		DedupeSize:          100_000,
		StorageDriver:       StorageMemory,
		SQLitePath:          "data/quizarena.db",
		DefaultEaseFactor:   2.5,
		DueSweepIntervalSec: 60,
		RateLimitRPS:        20,
		RateLimitBurst:      40,
		MaxDueLimit:         100,
		MetricsNamespace:    "quizarena",
		MetricsSubsystem:    "core",
	}
}

// DueSweepInterval returns DueSweepIntervalSec as a duration.
func (c *Config) DueSweepInterval() time.Duration {
	return time.Duration(c.DueSweepIntervalSec) * time.Second
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StorageDriver != StorageMemory && c.StorageDriver != StorageSQLite:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.StorageDriver)
	case c.StorageDriver == StorageSQLite && c.SQLitePath == "":
		return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
	case c.DefaultEaseFactor < minEaseFactor:
		return fmt.Errorf("%w: default_ease_factor must be at least %.1f", ErrInvalidConfig, minEaseFactor)
	case c.DueSweepIntervalSec <= 0:
		return fmt.Errorf("%w: due_sweep_interval_sec must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.MaxDueLimit <= 0:
		return fmt.Errorf("%w: max_due_limit must be positive", ErrInvalidConfig)
	case c.MetricsNamespace == "":
		return fmt.Errorf("%w: metrics_namespace must not be empty", ErrInvalidConfig)
	}
	return nil
}
