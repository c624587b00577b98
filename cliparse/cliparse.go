// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Process modes
const (
	ModeAPI    = "api"
	ModeWorker = "worker"
	ModeAll    = "all"
)

type Config struct {
	Port         int    `env:"PORT" envDefault:"3318"`
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseType string `env:"DATABASE_TYPE" envDefault:"postgres"`
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// Secrets (prefer env variables, but allow CLI for dev)
	HMACPepper string `env:"HMAC_PEPPER"`
	AdminKey   string `env:"ADMIN_KEY"`

	Mode    string `env:"MODE" envDefault:"all"`
	Workers int    `env:"WORKERS" envDefault:"1"`

	// Event log
	StreamName    string        `env:"VOTE_STREAM" envDefault:"votes_stream"`
	ConsumerGroup string        `env:"VOTE_GROUP" envDefault:"vote_processors"`
	BatchSize     int           `env:"WORKER_BATCH" envDefault:"10"`
	BlockTimeout  time.Duration `env:"WORKER_BLOCK" envDefault:"5s"`
	ClaimIdle     time.Duration `env:"WORKER_CLAIM_IDLE" envDefault:"30s"`

	// Dedup barrier
	DedupTTL      time.Duration `env:"DEDUP_TTL" envDefault:"8760h"`
	DedupFailOpen bool          `env:"DEDUP_FAIL_OPEN" envDefault:"true"`

	// Read caches
	ListCacheTTL time.Duration `env:"POLLS_CACHE_TTL" envDefault:"5m"`
	PollCacheTTL time.Duration `env:"POLL_CACHE_TTL" envDefault:"5m"`
	HistoryLimit int           `env:"HISTORY_LIMIT" envDefault:"500"`
}

// ParseFlags reads the environment, then applies CLI flags on top.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("pulsometro", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", cfg.Port, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", cfg.DatabaseURL, "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", cfg.DatabaseType, "Database type (postgres or sqlite)")
	fs.StringVar(&cfg.RedisURL, "r", cfg.RedisURL, "Redis URL")

	fs.StringVar(&cfg.HMACPepper, "pepper", cfg.HMACPepper, "HMAC pepper (prefer env)")
	fs.StringVar(&cfg.AdminKey, "admin-key", cfg.AdminKey, "Admin key (prefer env)")

	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Process mode (api, worker or all)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of vote processor workers")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (cfg Config) validate() error {
	if cfg.DatabaseURL == "" {
		return errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	switch cfg.DatabaseType {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid database type %q", cfg.DatabaseType)
	}

	switch cfg.Mode {
	case ModeAPI, ModeWorker, ModeAll:
	default:
		return fmt.Errorf("invalid mode %q", cfg.Mode)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.Workers < 1 {
		return errors.New("at least one worker required")
	}
	if cfg.BatchSize < 1 {
		return errors.New("WORKER_BATCH must be positive")
	}
	if cfg.HistoryLimit < 1 {
		return errors.New("HISTORY_LIMIT must be positive")
	}
	if cfg.ClaimIdle <= 0 {
		return errors.New("WORKER_CLAIM_IDLE must be positive")
	}
	// SET ... EX takes whole seconds
	if cfg.DedupTTL < time.Second {
		return fmt.Errorf("DEDUP_TTL must be at least 1s, got %v", cfg.DedupTTL)
	}

	return nil
}

// RunsAPI reports whether the HTTP server should start.
func (cfg Config) RunsAPI() bool {
	return cfg.Mode == ModeAPI || cfg.Mode == ModeAll
}

// RunsWorkers reports whether vote processor workers should start.
func (cfg Config) RunsWorkers() bool {
	return cfg.Mode == ModeWorker || cfg.Mode == ModeAll
}
