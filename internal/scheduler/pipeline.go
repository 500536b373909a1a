package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/albapepper/projection-refresher/internal/archive"
	"github.com/albapepper/projection-refresher/internal/difflog"
	"github.com/albapepper/projection-refresher/internal/fsutil"
	"github.com/albapepper/projection-refresher/internal/scores"
)

// process runs archive → diff → log for one completion. The marker is
// recorded whatever the outcome so a completion is never handled twice.
func (s *Scheduler) process(ctx context.Context, finishedAt string) {
	start := time.Now()
	s.logger.Info("Processing refresh completion", "finished_at", finishedAt)

	entry, ok := s.pipeline(finishedAt)
	if ok {
		if err := s.log.Append(entry); err != nil {
			s.logger.Warn("Failed to append diff entry", "error", err)
		} else {
			s.logger.Info("Recorded score diff",
				"season", entry.Season,
				"week", entry.Week,
				"has_changes", entry.HasChanges,
				"team_diffs", len(entry.TeamDiffs),
				"player_diffs", len(entry.PlayerDiffs))
		}
		if s.mirror != nil {
			if err := s.mirror.Record(ctx, entry); err != nil {
				s.logger.Warn("Failed to mirror diff entry", "error", err)
			}
		}
	}

	s.state.LastProcessedFinishedAt = finishedAt
	s.persist()
	s.logger.Info("Completion processed", "finished_at", finishedAt, "duration", time.Since(start).Round(time.Millisecond))
}

// pipeline archives the completion and diffs its scoreboard against the
// previous snapshot. ok is false when there is nothing to record.
func (s *Scheduler) pipeline(finishedAt string) (difflog.Entry, bool) {
	res, err := s.archiver.Archive(finishedAt)
	if err != nil {
		s.logger.Warn("Archival failed", "finished_at", finishedAt, "error", err)
		return difflog.Entry{}, false
	}
	if res == nil {
		s.logger.Warn("Nothing to archive", "finished_at", finishedAt)
		return difflog.Entry{}, false
	}
	s.logger.Info("Archived refresh artifacts", "summary", res.Summary())
	if res.Scoreboard == nil {
		return difflog.Entry{}, false
	}

	roster := s.loadRoster(res.RosterPath)
	curr, err := readSnapshot(res.Scoreboard.Archived, res.Week, roster)
	if err != nil {
		s.logger.Warn("Failed to read archived scoreboard", "path", res.Scoreboard.Archived, "error", err)
		return difflog.Entry{}, false
	}
	if curr.Empty() {
		s.logger.Warn("Archived scoreboard has no scoring rows", "path", res.Scoreboard.Archived)
		return difflog.Entry{}, false
	}

	prev := s.previousSnapshot(res, roster)
	diff := scores.Diff(prev, &curr).WithTeamNames(res.Teams)

	entry := difflog.NewEntry(finishedAt, res.Season, res.Week, diff)
	entry.RecordedAt = s.now().UTC().Format(time.RFC3339)
	entry.SimulationArchive = res.Simulation
	entry.ScoreArchive = res.Scoreboard.Archived

	s.state.Season = res.Season
	s.state.LastSnapshot = &curr
	return entry, true
}

// previousSnapshot prefers the in-memory snapshot from the same season and
// otherwise rebuilds one from the second-newest archived scoreboard.
func (s *Scheduler) previousSnapshot(res *archive.Result, roster *scores.WeeklyRoster) *scores.Snapshot {
	if s.state.LastSnapshot != nil && s.state.Season == res.Season {
		return s.state.LastSnapshot
	}

	files, err := archive.List(res.Scoreboard.Dir)
	if err != nil {
		s.logger.Warn("Failed to list score history", "dir", res.Scoreboard.Dir, "error", err)
		return nil
	}
	for _, f := range files {
		if f.Path == res.Scoreboard.Archived {
			continue
		}
		snap, err := readSnapshot(f.Path, res.Week, roster)
		if err != nil {
			s.logger.Warn("Skipping unreadable score archive", "path", f.Path, "error", err)
			continue
		}
		s.logger.Info("Rebuilt previous snapshot from history", "path", f.Path)
		return &snap
	}
	return nil
}

func (s *Scheduler) loadRoster(path string) *scores.WeeklyRoster {
	if path == "" {
		return nil
	}
	read := fsutil.ReadFile(path)
	if !read.OK() {
		s.logger.Warn("Roster snapshot unavailable", "path", path, "status", read.Status, "error", read.Err)
		return nil
	}
	roster, err := scores.ParseRoster(read.Data)
	if err != nil {
		s.logger.Warn("Ignoring malformed roster snapshot", "path", path, "error", err)
		return nil
	}
	return roster
}

// readSnapshot decodes an archived scoreboard file.
func readSnapshot(path string, week int, roster *scores.WeeklyRoster) (scores.Snapshot, error) {
	format, ok := scores.FormatOf(path)
	if !ok {
		return scores.Snapshot{}, fmt.Errorf("unrecognized scoreboard file %s", path)
	}
	read := fsutil.ReadFile(path)
	if !read.OK() {
		return scores.Snapshot{}, fmt.Errorf("read scoreboard archive: %w", read.Err)
	}
	return scores.Decode(read.Data, format, week, roster)
}
