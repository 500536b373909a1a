// Package archive copies each completed refresh's simulation output and
// weekly scoreboard into a retained history store.
//
// Source layout (under the data root):
//
//	out/simulations/<season>/rest_of_season.json
//	out/espn/<season>/scoreboard_week_<w>.json
//	out/espn/<season>/weekly_scores_<season>_week_<w>.csv
//	raw/espn/<season>/view-mRoster-week-<w>.json
//
// History layout (under the history root):
//
//	simulations/<season>/rest_of_season__<ts>.json
//	weekly_scores/<season>_week_<w>/{scoreboard|weekly_scores}_<season>_week_<w>__<ts>.{json|csv}
package archive

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/albapepper/projection-refresher/internal/fsutil"
	"github.com/albapepper/projection-refresher/internal/scores"
)

const baselineFile = "rest_of_season.json"

// Config controls where artifacts are read from and how many are kept.
type Config struct {
	DataRoot            string
	HistoryRoot         string
	SimulationRetention int
	ScoreRetention      int
}

// ScoreArtifact describes an archived scoreboard.
type ScoreArtifact struct {
	Source   string
	Archived string
	Format   scores.Format
	Dir      string
	Pruned   int
}

// Result is the outcome of archiving one completion.
type Result struct {
	Season         int
	Week           int
	CompletedWeeks []int
	Teams          map[int]string
	Simulation     string
	SimPruned      int
	Scoreboard     *ScoreArtifact
	RosterPath     string
}

// Summary returns a human-readable summary.
func (r *Result) Summary() string {
	score := "none"
	if r.Scoreboard != nil {
		score = filepath.Base(r.Scoreboard.Archived)
	}
	return fmt.Sprintf("season=%d week=%d sim=%s scoreboard=%s sim_pruned=%d",
		r.Season, r.Week, filepath.Base(r.Simulation), score, r.SimPruned)
}

// Archiver copies artifacts into the history store.
type Archiver struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Archiver.
func New(cfg Config, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{cfg: cfg, logger: logger, now: time.Now}
}

// simulationDoc is the subset of the baseline simulation the archiver reads.
type simulationDoc struct {
	Season int `json:"season"`
	Teams  []struct {
		TeamID int    `json:"team_id"`
		Name   string `json:"name"`
		Abbrev string `json:"abbrev"`
	} `json:"teams"`
	CompletedWeeks []int `json:"completed_weeks"`
	Sources        struct {
		CompletedWeeks []int `json:"completed_weeks"`
	} `json:"sources"`
}

// Archive copies the newest season's baseline simulation and the current
// week's scoreboard into history. It returns nil, nil when there is no
// baseline simulation yet. A missing scoreboard is logged and leaves
// Result.Scoreboard nil.
func (a *Archiver) Archive(finishedAt string) (*Result, error) {
	season, simPath, ok := a.latestSeason()
	if !ok {
		a.logger.Warn("No baseline simulation to archive", "root", a.simulationsRoot())
		return nil, nil
	}

	read := fsutil.ReadFile(simPath)
	switch read.Status {
	case fsutil.NotFound:
		a.logger.Warn("Baseline simulation disappeared before archival", "path", simPath)
		return nil, nil
	case fsutil.IOError:
		return nil, fmt.Errorf("read simulation: %w", read.Err)
	}

	var doc simulationDoc
	if err := json.Unmarshal(read.Data, &doc); err != nil {
		return nil, fmt.Errorf("parse simulation %s: %w", simPath, err)
	}
	if doc.Season == 0 {
		doc.Season = season
	}
	weeks := doc.CompletedWeeks
	if len(weeks) == 0 {
		weeks = doc.Sources.CompletedWeeks
	}

	res := &Result{
		Season:         doc.Season,
		CompletedWeeks: weeks,
		Teams:          make(map[int]string, len(doc.Teams)),
	}
	if len(weeks) > 0 {
		res.Week = slices.Max(weeks)
	}
	for _, t := range doc.Teams {
		name := t.Name
		if name == "" {
			name = t.Abbrev
		}
		res.Teams[t.TeamID] = name
	}

	stamp := a.stamp(finishedAt)

	simDir := filepath.Join(a.cfg.HistoryRoot, "simulations", strconv.Itoa(res.Season))
	res.Simulation = filepath.Join(simDir, "rest_of_season__"+stamp+".json")
	if err := fsutil.WriteFileAtomic(res.Simulation, read.Data, 0o644); err != nil {
		return nil, fmt.Errorf("archive simulation: %w", err)
	}
	removed, err := Prune(simDir, a.cfg.SimulationRetention)
	if err != nil {
		a.logger.Warn("Failed to prune simulation history", "dir", simDir, "error", err)
	}
	res.SimPruned = len(removed)
	a.logger.Info("Archived simulation", "season", res.Season, "path", res.Simulation, "pruned", res.SimPruned)

	if res.Week == 0 {
		a.logger.Warn("Simulation reports no completed weeks; skipping scoreboard archival", "season", res.Season)
		return res, nil
	}

	if rp := a.RosterPath(res.Season, res.Week); fsutil.Exists(rp) {
		res.RosterPath = rp
	}

	src, format, ok := a.scoreboardSource(res.Season, res.Week)
	if !ok {
		a.logger.Warn("No scoreboard artifact for current week", "season", res.Season, "week", res.Week)
		return res, nil
	}

	dir := a.ScoreHistoryDir(res.Season, res.Week)
	prefix := "weekly_scores"
	if format == scores.FormatJSON {
		prefix = "scoreboard"
	}
	dst := filepath.Join(dir, fmt.Sprintf("%s_%d_week_%d__%s.%s", prefix, res.Season, res.Week, stamp, format))
	if err := fsutil.CopyFileAtomic(src, dst); err != nil {
		a.logger.Warn("Failed to archive scoreboard", "source", src, "error", err)
		return res, nil
	}
	removed, err = Prune(dir, a.cfg.ScoreRetention)
	if err != nil {
		a.logger.Warn("Failed to prune score history", "dir", dir, "error", err)
	}
	res.Scoreboard = &ScoreArtifact{Source: src, Archived: dst, Format: format, Dir: dir, Pruned: len(removed)}
	a.logger.Info("Archived scoreboard", "season", res.Season, "week", res.Week, "format", format, "path", dst)
	return res, nil
}

// ScoreHistoryDir is the week-scoped score history directory.
func (a *Archiver) ScoreHistoryDir(season, week int) string {
	return filepath.Join(a.cfg.HistoryRoot, "weekly_scores", fmt.Sprintf("%d_week_%d", season, week))
}

// RosterPath is the authoritative per-week roster snapshot location.
func (a *Archiver) RosterPath(season, week int) string {
	return filepath.Join(a.cfg.DataRoot, "raw", "espn", strconv.Itoa(season), fmt.Sprintf("view-mRoster-week-%d.json", week))
}

func (a *Archiver) simulationsRoot() string {
	return filepath.Join(a.cfg.DataRoot, "out", "simulations")
}

// latestSeason finds the largest numeric season directory holding a
// baseline simulation.
func (a *Archiver) latestSeason() (int, string, bool) {
	entries, err := os.ReadDir(a.simulationsRoot())
	if err != nil {
		return 0, "", false
	}
	var seasons []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if n, err := strconv.Atoi(e.Name()); err == nil {
			seasons = append(seasons, n)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(seasons)))
	for _, s := range seasons {
		p := filepath.Join(a.simulationsRoot(), strconv.Itoa(s), baselineFile)
		if fsutil.Exists(p) {
			return s, p, true
		}
	}
	return 0, "", false
}

// scoreboardSource prefers the live JSON payload over the flattened CSV.
func (a *Archiver) scoreboardSource(season, week int) (string, scores.Format, bool) {
	dir := filepath.Join(a.cfg.DataRoot, "out", "espn", strconv.Itoa(season))
	jsonPath := filepath.Join(dir, fmt.Sprintf("scoreboard_week_%d.json", week))
	if fsutil.Exists(jsonPath) {
		return jsonPath, scores.FormatJSON, true
	}
	csvPath := filepath.Join(dir, fmt.Sprintf("weekly_scores_%d_week_%d.csv", season, week))
	if fsutil.Exists(csvPath) {
		return csvPath, scores.FormatCSV, true
	}
	return "", "", false
}

func (a *Archiver) stamp(finishedAt string) string {
	if finishedAt == "" {
		finishedAt = a.now().UTC().Format(time.RFC3339)
	}
	return SanitizeTimestamp(finishedAt)
}
