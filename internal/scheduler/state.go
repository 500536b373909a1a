package scheduler

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/albapepper/projection-refresher/internal/fsutil"
	"github.com/albapepper/projection-refresher/internal/scores"
)

// State is what the scheduler carries between ticks and across restarts.
type State struct {
	LastProcessedFinishedAt string           `json:"lastProcessedFinishedAt,omitempty"`
	Season                  int              `json:"season,omitempty"`
	LastSnapshot            *scores.Snapshot `json:"lastSnapshot,omitempty"`
	SavedAt                 string           `json:"savedAt,omitempty"`
}

// LoadState reads persisted state. A missing or unreadable file yields the
// zero State so the scheduler falls back to archived history.
func LoadState(path string, logger *slog.Logger) State {
	if path == "" {
		return State{}
	}
	res := fsutil.ReadFile(path)
	switch res.Status {
	case fsutil.NotFound:
		logger.Info("No scheduler state on disk", "path", path)
		return State{}
	case fsutil.IOError:
		logger.Warn("Failed to read scheduler state", "path", path, "error", res.Err)
		return State{}
	}

	var st State
	if err := json.Unmarshal(res.Data, &st); err != nil {
		logger.Warn("Ignoring corrupt scheduler state", "path", path, "error", err)
		return State{}
	}
	logger.Info("Loaded scheduler state",
		"path", path,
		"last_processed", st.LastProcessedFinishedAt,
		"has_snapshot", st.LastSnapshot != nil)
	return st
}

// SaveState writes st atomically.
func SaveState(path string, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode scheduler state: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write scheduler state: %w", err)
	}
	return nil
}
