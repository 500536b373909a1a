// Package maintenance re-applies retention caps across the whole history
// store. Archival only prunes the directory it writes to, so directories for
// past seasons and weeks, or caps lowered between restarts, are handled here.
// The sweep runs once at startup, before the scheduler takes over the store.
package maintenance

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/albapepper/projection-refresher/internal/archive"
)

// Config controls the retention caps applied by Sweep. A zero cap leaves
// that part of the store alone.
type Config struct {
	HistoryRoot         string
	SimulationRetention int
	ScoreRetention      int
}

// LogPruner bounds the diff log.
type LogPruner interface {
	Prune() (int, error)
}

// Result tracks what a sweep removed.
type Result struct {
	DirsScanned       int
	SimulationsPruned int
	ScoresPruned      int
	LogLinesPruned    int
	Errors            []string
}

// AddErrorf records a formatted error message.
func (r *Result) AddErrorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the sweep.
func (r *Result) Summary() string {
	return fmt.Sprintf(
		"dirs=%d simulations_pruned=%d scores_pruned=%d log_lines_pruned=%d errors=%d",
		r.DirsScanned, r.SimulationsPruned, r.ScoresPruned, r.LogLinesPruned, len(r.Errors))
}

// Sweep prunes every season and week directory to its cap and trims the diff
// log. Failures are collected, never fatal.
func Sweep(cfg Config, log LogPruner, logger *slog.Logger) Result {
	start := time.Now()
	var res Result

	if cfg.SimulationRetention > 0 {
		res.SimulationsPruned = pruneChildren(filepath.Join(cfg.HistoryRoot, "simulations"), cfg.SimulationRetention, &res)
	}
	if cfg.ScoreRetention > 0 {
		res.ScoresPruned = pruneChildren(filepath.Join(cfg.HistoryRoot, "weekly_scores"), cfg.ScoreRetention, &res)
	}
	if log != nil {
		n, err := log.Prune()
		if err != nil {
			res.AddErrorf("diff log: %v", err)
		}
		res.LogLinesPruned = n
	}

	for _, e := range res.Errors {
		logger.Warn("History sweep error", "error", e)
	}
	logger.Info("History sweep finished",
		"duration", time.Since(start).Round(time.Millisecond),
		"summary", res.Summary())
	return res
}

// pruneChildren prunes each subdirectory of root and returns the number of
// files removed. A missing root is not an error.
func pruneChildren(root string, keep int, res *Result) int {
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			res.AddErrorf("read %s: %v", root, err)
		}
		return 0
	}
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		res.DirsScanned++
		gone, err := archive.Prune(dir, keep)
		if err != nil {
			res.AddErrorf("prune %s: %v", dir, err)
		}
		removed += len(gone)
	}
	return removed
}
