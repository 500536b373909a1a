// Command refresher is the unattended projection refresh scheduler.
//
// Usage:
//
//	refresher
//	REFRESH_GAME_INTERVAL_MINUTES=5 refresher
//
// It is meant to run under a process supervisor; readiness, watchdog and
// stopping notifications are sent when NOTIFY_SOCKET is set.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"

	"github.com/albapepper/projection-refresher/internal/archive"
	"github.com/albapepper/projection-refresher/internal/config"
	"github.com/albapepper/projection-refresher/internal/db"
	"github.com/albapepper/projection-refresher/internal/difflog"
	"github.com/albapepper/projection-refresher/internal/jobclient"
	"github.com/albapepper/projection-refresher/internal/maintenance"
	"github.com/albapepper/projection-refresher/internal/scheduler"
	"github.com/albapepper/projection-refresher/internal/window"
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Refresh scheduler exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Cadence: static weekly table plus date overrides loaded once
	overrides := window.LoadOverrides(cfg.OverridesFile, logger)
	resolver, err := window.NewResolver(cfg.Location(), window.DefaultWeekly(cfg.GameIntervalMinutes), overrides, cfg.IdleIntervalMinutes)
	if err != nil {
		return fmt.Errorf("build window resolver: %w", err)
	}

	jobs, archiver, diffLog := refreshDeps(cfg, logger)

	// Bring the whole history store within its caps before the first tick
	maintenance.Sweep(maintenance.Config{
		HistoryRoot:         cfg.HistoryRoot,
		SimulationRetention: cfg.SimulationRetention,
		ScoreRetention:      cfg.ScoreRetention,
	}, diffLog, logger)

	opts := scheduler.Options{
		Jobs:           jobs,
		Windows:        resolver,
		Archiver:       archiver,
		Log:            diffLog,
		StateFile:      cfg.StateFile,
		CheckFrequency: cfg.CheckFrequency,
		Heartbeat:      func() { notify(logger, daemon.SdNotifyWatchdog) },
		Logger:         logger,
	}

	// Optional Postgres mirror of diff entries
	if cfg.MirrorEnabled() {
		logger.Info("Connecting to diff mirror database...")
		pool, err := db.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect diff mirror: %w", err)
		}
		defer pool.Close()
		opts.Mirror = db.NewMirror(pool, cfg.DiffLogLimit)
		logger.Info("Diff mirror connected",
			"min_conns", cfg.DBPoolMinConns,
			"max_conns", cfg.DBPoolMaxConns)
	} else {
		logger.Info("Diff mirror disabled (no DIFF_DATABASE_URL)")
	}

	sched, err := scheduler.New(opts)
	if err != nil {
		return err
	}

	logger.Info("Starting projection refresher",
		"api", cfg.APIBaseURL,
		"scenario", cfg.ScenarioID,
		"timezone", cfg.Timezone,
		"data_root", cfg.DataRoot,
		"history_root", cfg.HistoryRoot,
		"override_dates", len(overrides))

	notify(logger, daemon.SdNotifyReady)
	defer notify(logger, daemon.SdNotifyStopping)

	return sched.Run(ctx)
}

// refreshDeps builds the collaborators the scheduler drives. They all log
// under component=refresh.
func refreshDeps(cfg *config.Config, logger *slog.Logger) (*jobclient.Client, *archive.Archiver, *difflog.Log) {
	logger = logger.With("component", "refresh")

	jobs := jobclient.New(jobclient.Options{
		BaseURL:           cfg.APIBaseURL,
		ScenarioID:        cfg.ScenarioID,
		Timeout:           cfg.RequestTimeout,
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Logger:            logger,
	})
	archiver := archive.New(archive.Config{
		DataRoot:            cfg.DataRoot,
		HistoryRoot:         cfg.HistoryRoot,
		SimulationRetention: cfg.SimulationRetention,
		ScoreRetention:      cfg.ScoreRetention,
	}, logger)
	diffLog := difflog.New(cfg.DiffLogPath, cfg.DiffLogLimit, logger)
	return jobs, archiver, diffLog
}

// notify sends state to the supervisor. Outside systemd it is a no-op.
func notify(logger *slog.Logger, state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		logger.Debug("sd_notify failed", "state", state, "error", err)
	}
}
