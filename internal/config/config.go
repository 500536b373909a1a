// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/refresher and cmd/refresh-summary.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone lookups must not depend on the host
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DefaultAPIBaseURL     = "http://localhost:3000/api/simulator"
	DefaultScenarioID     = "baseline"
	DefaultTimezone       = "America/New_York"
	DefaultDataRoot       = "./data"
	DiffLogFileName       = "score_diffs.jsonl"
	StateFileName         = "scheduler_state.json"
	OverridesRelativePath = "config/refresh_overrides.json"
)

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Remote job service
	APIBaseURL         string
	ScenarioID         string
	RequestTimeout     time.Duration
	RateLimitPerMinute int

	// Cadence
	Timezone            string
	IdleIntervalMinutes int
	GameIntervalMinutes int
	CheckFrequency      time.Duration
	OverridesFile       string

	// Filesystem
	DataRoot    string
	HistoryRoot string
	DiffLogPath string
	StateFile   string

	// Retention
	SimulationRetention int
	ScoreRetention      int
	DiffLogLimit        int

	// Optional Postgres mirror of diff entries
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// Logging
	LogLevel  string
	LogFormat string // text, json
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dataRoot := envOr("DATA_ROOT", DefaultDataRoot)
	historyRoot := envOr("REFRESH_HISTORY_ROOT", filepath.Join(dataRoot, "history"))

	cfg := &Config{
		APIBaseURL:         strings.TrimRight(envOr("REFRESH_API_BASE_URL", DefaultAPIBaseURL), "/"),
		ScenarioID:         envOr("REFRESH_SCENARIO_ID", DefaultScenarioID),
		RequestTimeout:     time.Duration(envInt("REFRESH_REQUEST_TIMEOUT_SECONDS", 20)) * time.Second,
		RateLimitPerMinute: envInt("REFRESH_RATE_LIMIT_PER_MINUTE", 30),

		Timezone:            envOr("REFRESH_TIMEZONE", DefaultTimezone),
		IdleIntervalMinutes: envInt("REFRESH_IDLE_INTERVAL_MINUTES", 120),
		GameIntervalMinutes: envInt("REFRESH_GAME_INTERVAL_MINUTES", 10),
		CheckFrequency:      time.Duration(envInt("REFRESH_CHECK_FREQUENCY_SECONDS", 30)) * time.Second,
		OverridesFile:       envOr("REFRESH_WINDOW_OVERRIDES_FILE", filepath.Join(dataRoot, OverridesRelativePath)),

		DataRoot:    dataRoot,
		HistoryRoot: historyRoot,
		DiffLogPath: envOr("REFRESH_DIFF_LOG_PATH", filepath.Join(historyRoot, DiffLogFileName)),
		StateFile:   envOr("REFRESH_STATE_FILE", filepath.Join(historyRoot, StateFileName)),

		SimulationRetention: envInt("REFRESH_SIM_HISTORY_LIMIT", 96),
		ScoreRetention:      envInt("REFRESH_SCORE_HISTORY_LIMIT", 192),
		DiffLogLimit:        envInt("REFRESH_DIFF_LOG_LIMIT", 500),

		DatabaseURL:    envOr("DIFF_DATABASE_URL", ""),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 0),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 4),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		LogLevel:  strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(envOr("LOG_FORMAT", "text")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the scheduler cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.APIBaseURL == "":
		return fmt.Errorf("REFRESH_API_BASE_URL must not be empty")
	case c.ScenarioID == "":
		return fmt.Errorf("REFRESH_SCENARIO_ID must not be empty")
	case c.IdleIntervalMinutes <= 0:
		return fmt.Errorf("REFRESH_IDLE_INTERVAL_MINUTES must be positive, got %d", c.IdleIntervalMinutes)
	case c.GameIntervalMinutes <= 0:
		return fmt.Errorf("REFRESH_GAME_INTERVAL_MINUTES must be positive, got %d", c.GameIntervalMinutes)
	case c.CheckFrequency <= 0:
		return fmt.Errorf("REFRESH_CHECK_FREQUENCY_SECONDS must be positive")
	case c.RequestTimeout <= 0:
		return fmt.Errorf("REFRESH_REQUEST_TIMEOUT_SECONDS must be positive")
	case c.SimulationRetention <= 0 || c.ScoreRetention <= 0:
		return fmt.Errorf("history retention limits must be positive")
	case c.DiffLogLimit <= 0:
		return fmt.Errorf("REFRESH_DIFF_LOG_LIMIT must be positive, got %d", c.DiffLogLimit)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("REFRESH_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// MirrorEnabled reports whether diff entries should also go to Postgres.
func (c *Config) MirrorEnabled() bool {
	return c.DatabaseURL != ""
}

// Location returns the civil timezone used for window resolution.
// Validate has already proven the zone loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}
