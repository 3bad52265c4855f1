// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
)

// Supported values for Config.Model and Config.Store.
const (
	ModelElo          = "elo"
	ModelPlackettLuce = "plackett-luce"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory match queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of rating workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many match IDs are remembered for idempotency.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// Model selects the rating model: elo or plackett-luce.
	Model string `koanf:"model"`

	// Store selects the rating store: memory or postgres.
	Store string `koanf:"store"`

	// DatabaseURL is the pgx connection string used when Store is postgres.
	DatabaseURL string `koanf:"database_url"`

	Elo          EloConfig          `koanf:"elo"`
	PlackettLuce PlackettLuceConfig `koanf:"plackett_luce"`
}

// EloConfig holds the Elo model parameters.
type EloConfig struct {
	BaseMu         float64 `koanf:"base_mu"`
	BaseSigma      float64 `koanf:"base_sigma"`
	K              float64 `koanf:"k"`
	SigmaK         float64 `koanf:"sigma_k"`
	SigmaFloor     float64 `koanf:"sigma_floor"`
	NonLinearScale float64 `koanf:"non_linear_scale"`
	C              float64 `koanf:"c"`
}

// PlackettLuceConfig holds the Plackett-Luce model parameters. Beta and Tau
// are derived from Sigma when unset.
type PlackettLuceConfig struct {
	Mu         float64  `koanf:"mu"`
	Sigma      float64  `koanf:"sigma"`
	Beta       *float64 `koanf:"beta"`
	Kappa      float64  `koanf:"kappa"`
	Tau        *float64 `koanf:"tau"`
	Margin     float64  `koanf:"margin"`
	LimitSigma bool     `koanf:"limit_sigma"`
	Balance    bool     `koanf:"balance"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          100_000,
		MaxLeaderboardLimit: 100,
		Model:               ModelPlackettLuce,
		Store:               StoreMemory,
		Elo: EloConfig{
			BaseMu:         1000,
			BaseSigma:      350,
			K:              32,
			SigmaK:         10,
			SigmaFloor:     50,
			NonLinearScale: 10,
			C:              3,
		},
		PlackettLuce: PlackettLuceConfig{
			Mu:     25,
			Sigma:  25.0 / 3,
			Kappa:  0.0001,
			Margin: 2,
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive, got %d", ErrInvalidConfig, c.MaxLeaderboardLimit)
	case !slices.Contains([]string{ModelElo, ModelPlackettLuce}, strings.ToLower(c.Model)):
		return fmt.Errorf("%w: unknown model %q", ErrInvalidConfig, c.Model)
	case !slices.Contains([]string{StoreMemory, StorePostgres}, strings.ToLower(c.Store)):
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	case strings.EqualFold(c.Store, StorePostgres) && c.DatabaseURL == "":
		return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalidConfig)
	case c.PlackettLuce.Sigma <= 0 || c.Elo.BaseSigma <= 0:
		return fmt.Errorf("%w: sigma must be positive", ErrInvalidConfig)
	case c.Elo.SigmaFloor <= 0:
		return fmt.Errorf("%w: elo.sigma_floor must be positive, got %g", ErrInvalidConfig, c.Elo.SigmaFloor)
	}
	return nil
}
