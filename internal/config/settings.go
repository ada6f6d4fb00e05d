package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings are runtime knobs read from the environment.
type Settings struct {
	// Workers bounds Monte Carlo parallelism; zero uses every CPU.
	Workers       int           `env:"WEALTHSIM_WORKERS"         envDefault:"0"`
	CacheMaxBytes int64         `env:"WEALTHSIM_CACHE_MAX_BYTES" envDefault:"268435456"`
	MCIterations  int           `env:"WEALTHSIM_MC_ITERATIONS"   envDefault:"10000"`
	RedisAddr     string        `env:"WEALTHSIM_REDIS_ADDR"`
	RedisTTL      time.Duration `env:"WEALTHSIM_REDIS_TTL"       envDefault:"24h"`
	// RulesDir holds extra rules snapshots published over the built-in ones.
	RulesDir     string `env:"WEALTHSIM_RULES_DIR"`
	OTelEndpoint string `env:"WEALTHSIM_OTEL_ENDPOINT"`
}

// LoadSettings parses Settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	if s.Workers < 0 {
		return Settings{}, fmt.Errorf("WEALTHSIM_WORKERS cannot be negative")
	}
	if s.MCIterations <= 0 {
		return Settings{}, fmt.Errorf("WEALTHSIM_MC_ITERATIONS must be positive")
	}
	if s.CacheMaxBytes <= 0 {
		return Settings{}, fmt.Errorf("WEALTHSIM_CACHE_MAX_BYTES must be positive")
	}
	return s, nil
}
