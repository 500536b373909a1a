package window

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// rawWindow is the on-disk shape of one override entry.
type rawWindow struct {
	Start           string `json:"start"`
	End             string `json:"end"`
	IntervalMinutes int    `json:"intervalMinutes"`
	Label           string `json:"label"`
}

// LoadOverrides reads the date-keyed override file. A missing or unparseable
// file yields an empty set; individual malformed entries are dropped with a
// warning and never abort the rest of the file.
func LoadOverrides(path string, logger *slog.Logger) Overrides {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return Overrides{}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("No window override file", "path", path)
		} else {
			logger.Warn("Failed to read window overrides", "path", path, "error", err)
		}
		return Overrides{}
	}

	overrides, err := ParseOverrides(data, logger)
	if err != nil {
		logger.Warn("Ignoring malformed window override file", "path", path, "error", err)
		return Overrides{}
	}

	logger.Info("Loaded window overrides", "path", path, "dates", len(overrides))
	return overrides
}

// ParseOverrides decodes override JSON. Only a top-level decode failure is an
// error; bad dates and bad entries are skipped individually.
func ParseOverrides(data []byte, logger *slog.Logger) (Overrides, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode overrides: %w", err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Overrides, len(raw))
	for _, dateKey := range keys {
		if _, err := time.Parse(time.DateOnly, dateKey); err != nil {
			logger.Warn("Dropping override date with invalid key", "date", dateKey)
			continue
		}

		var entries []json.RawMessage
		if err := json.Unmarshal(raw[dateKey], &entries); err != nil {
			logger.Warn("Dropping override date: expected a list of windows", "date", dateKey, "error", err)
			continue
		}

		windows := make([]TimeWindow, 0, len(entries))
		for i, e := range entries {
			w, err := parseEntry(e)
			if err != nil {
				logger.Warn("Dropping malformed override window", "date", dateKey, "index", i, "error", err)
				continue
			}
			windows = append(windows, w)
		}
		if len(windows) > 0 {
			out[dateKey] = windows
		}
	}
	return out, nil
}

func parseEntry(data json.RawMessage) (TimeWindow, error) {
	var rw rawWindow
	if err := json.Unmarshal(data, &rw); err != nil {
		return TimeWindow{}, fmt.Errorf("decode window: %w", err)
	}
	start, err := parseHHMM(rw.Start)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseHHMM(rw.End)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("end: %w", err)
	}
	if end <= start {
		return TimeWindow{}, fmt.Errorf("end %s is not after start %s", rw.End, rw.Start)
	}
	if rw.IntervalMinutes <= 0 {
		return TimeWindow{}, fmt.Errorf("intervalMinutes must be positive, got %d", rw.IntervalMinutes)
	}
	label := strings.TrimSpace(rw.Label)
	if label == "" {
		label = "override"
	}
	return TimeWindow{StartMinute: start, EndMinute: end, IntervalMinutes: rw.IntervalMinutes, Label: label}, nil
}

// parseHHMM converts "HH:MM" to minutes since midnight. "24:00" is accepted
// as an end-of-day bound.
func parseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if h == 24 && m == 0 {
		return 24 * 60, nil
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time out of range %q", s)
	}
	return h*60 + m, nil
}
