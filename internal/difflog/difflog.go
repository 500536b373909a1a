// Package difflog persists one JSON line per processed refresh completion.
//
// The log is append-only and bounded: once it grows past its line cap it is
// rewritten through a temp file and rename, keeping the newest lines in order.
package difflog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/albapepper/projection-refresher/internal/fsutil"
	"github.com/albapepper/projection-refresher/internal/scores"
)

// NoDeltasMessage marks an entry for a cycle where nothing moved.
const NoDeltasMessage = "no deltas this cycle"

// ErrEmpty is returned by Latest when the log holds no entries.
var ErrEmpty = errors.New("diff log is empty")

// Entry is one processed completion.
type Entry struct {
	FinishedAt        string              `json:"finishedAt"`
	RecordedAt        string              `json:"recordedAt"`
	Season            int                 `json:"season"`
	Week              int                 `json:"week"`
	TeamDiffs         []scores.TeamDiff   `json:"teamDiffs"`
	PlayerDiffs       []scores.PlayerDiff `json:"playerDiffs"`
	HeadlineTeams     []string            `json:"headlineTeams"`
	HeadlinePlayers   []string            `json:"headlinePlayers"`
	HasChanges        bool                `json:"hasChanges"`
	Message           string              `json:"message,omitempty"`
	SimulationArchive string              `json:"simulationArchive,omitempty"`
	ScoreArchive      string              `json:"scoreArchive,omitempty"`
}

// NewEntry builds an entry from a diff result. Nil slices become empty so
// every line carries the same shape.
func NewEntry(finishedAt string, season, week int, res scores.Result) Entry {
	e := Entry{
		FinishedAt:      finishedAt,
		Season:          season,
		Week:            week,
		TeamDiffs:       res.TeamDiffs,
		PlayerDiffs:     res.PlayerDiffs,
		HeadlineTeams:   res.TeamHeadlines(),
		HeadlinePlayers: res.PlayerHeadlines(),
		HasChanges:      res.HasChanges(),
	}
	if e.TeamDiffs == nil {
		e.TeamDiffs = []scores.TeamDiff{}
	}
	if e.PlayerDiffs == nil {
		e.PlayerDiffs = []scores.PlayerDiff{}
	}
	if !e.HasChanges {
		e.Message = NoDeltasMessage
	}
	return e
}

// Log is a bounded newline-delimited JSON file.
type Log struct {
	path   string
	limit  int
	logger *slog.Logger
}

// New creates a Log at path holding at most limit lines.
func New(path string, limit int, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{path: path, limit: limit, logger: logger}
}

// Path returns the log location.
func (l *Log) Path() string { return l.path }

// Append writes e as one line, then prunes the log to its cap.
func (l *Log) Append(e Entry) error {
	if !e.HasChanges && e.Message == "" {
		e.Message = NoDeltasMessage
	}
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode diff entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create diff log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open diff log: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("append diff entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close diff log: %w", err)
	}

	removed, err := l.Prune()
	if err != nil {
		return fmt.Errorf("prune diff log: %w", err)
	}
	if removed > 0 {
		l.logger.Info("Pruned diff log", "path", l.path, "removed", removed, "limit", l.limit)
	}
	return nil
}

// Prune rewrites the log atomically with only the newest limit lines when
// it is over its cap. It returns the number of lines dropped.
func (l *Log) Prune() (int, error) {
	if l.limit <= 0 {
		return 0, nil
	}
	lines, err := l.lines()
	if err != nil {
		return 0, err
	}
	if len(lines) <= l.limit {
		return 0, nil
	}

	keep := lines[len(lines)-l.limit:]
	var buf bytes.Buffer
	for _, ln := range keep {
		buf.Write(ln)
		buf.WriteByte('\n')
	}
	if err := fsutil.WriteFileAtomic(l.path, buf.Bytes(), 0o644); err != nil {
		return 0, err
	}
	return len(lines) - len(keep), nil
}

// Latest returns the newest entry. It fails with ErrEmpty when there are no
// entries and with a decode error when the newest line is malformed.
func (l *Log) Latest() (Entry, error) {
	lines, err := l.lines()
	if err != nil {
		return Entry{}, err
	}
	if len(lines) == 0 {
		return Entry{}, ErrEmpty
	}
	var e Entry
	if err := json.Unmarshal(lines[len(lines)-1], &e); err != nil {
		return Entry{}, fmt.Errorf("decode newest diff entry: %w", err)
	}
	return e, nil
}

// lines returns the non-empty lines of the log. A missing log has none.
func (l *Log) lines() ([][]byte, error) {
	res := fsutil.ReadFile(l.path)
	switch res.Status {
	case fsutil.NotFound:
		return nil, nil
	case fsutil.IOError:
		return nil, fmt.Errorf("read diff log: %w", res.Err)
	}

	var out [][]byte
	sc := bufio.NewScanner(bytes.NewReader(res.Data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		ln := bytes.TrimSpace(sc.Bytes())
		if len(ln) == 0 {
			continue
		}
		out = append(out, append([]byte(nil), ln...))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan diff log: %w", err)
	}
	return out, nil
}
