package scores

import (
	"fmt"
	"math"
	"sort"
)

// Threshold is the smallest absolute delta worth reporting.
const Threshold = 0.05

// HeadlineLimit caps the pre-rendered team and player headline lists.
const HeadlineLimit = 6

// thresholdEpsilon absorbs float noise so 0.05 deltas are not lost to
// representation error (e.g. 10.15 - 10.1).
const thresholdEpsilon = 1e-9

// TeamDiff is a change in one team's total.
type TeamDiff struct {
	TeamID   int     `json:"teamId"`
	TeamName string  `json:"teamName,omitempty"`
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
	Delta    float64 `json:"delta"`
}

// PlayerDiff is a change in one player line.
type PlayerDiff struct {
	TeamID         int     `json:"teamId"`
	TeamName       string  `json:"teamName,omitempty"`
	PlayerID       string  `json:"playerId"`
	PlayerName     string  `json:"playerName"`
	LineupSlot     string  `json:"lineupSlot"`
	Previous       float64 `json:"previous"`
	Current        float64 `json:"current"`
	Delta          float64 `json:"delta"`
	CountsForScore bool    `json:"countsForScore"`
}

// Result holds the deltas between two snapshots, sorted by descending
// absolute delta.
type Result struct {
	TeamDiffs   []TeamDiff
	PlayerDiffs []PlayerDiff
}

// HasChanges reports whether any delta passed the threshold.
func (r Result) HasChanges() bool {
	return len(r.TeamDiffs) > 0 || len(r.PlayerDiffs) > 0
}

// Diff compares two snapshots of the same week. Snapshots from different
// weeks, or a nil side, produce an empty result.
func Diff(prev, curr *Snapshot) Result {
	if prev == nil || curr == nil || prev.Week != curr.Week {
		return Result{}
	}
	return Result{
		TeamDiffs:   diffTeams(prev, curr),
		PlayerDiffs: diffPlayers(prev, curr),
	}
}

func diffTeams(prev, curr *Snapshot) []TeamDiff {
	ids := make(map[int]struct{}, len(curr.TeamTotals))
	for id := range prev.TeamTotals {
		ids[id] = struct{}{}
	}
	for id := range curr.TeamTotals {
		ids[id] = struct{}{}
	}

	var out []TeamDiff
	for id := range ids {
		before := prev.TeamTotals[id].Total
		after := curr.TeamTotals[id].Total
		delta := after - before
		if !significant(delta) {
			continue
		}
		out = append(out, TeamDiff{
			TeamID:   id,
			Previous: round2(before),
			Current:  round2(after),
			Delta:    round2(delta),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Delta), math.Abs(out[j].Delta)
		if ai != aj {
			return ai > aj
		}
		return out[i].TeamID < out[j].TeamID
	})
	return out
}

func diffPlayers(prev, curr *Snapshot) []PlayerDiff {
	keys := make(map[string]struct{}, len(curr.PlayerScores))
	for k := range prev.PlayerScores {
		keys[k] = struct{}{}
	}
	for k := range curr.PlayerScores {
		keys[k] = struct{}{}
	}

	var out []PlayerDiff
	for k := range keys {
		before, hadBefore := prev.PlayerScores[k]
		after, hasAfter := curr.PlayerScores[k]
		delta := after.Score - before.Score
		if !significant(delta) {
			continue
		}
		ref := after
		if !hasAfter {
			ref = before
		}
		out = append(out, PlayerDiff{
			TeamID:         ref.TeamID,
			PlayerID:       ref.PlayerID,
			PlayerName:     ref.PlayerName,
			LineupSlot:     ref.LineupSlot,
			Previous:       round2(before.Score),
			Current:        round2(after.Score),
			Delta:          round2(delta),
			CountsForScore: (hasAfter && after.CountsForScore) || (hadBefore && before.CountsForScore),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Delta), math.Abs(out[j].Delta)
		if ai != aj {
			return ai > aj
		}
		if out[i].TeamID != out[j].TeamID {
			return out[i].TeamID < out[j].TeamID
		}
		if out[i].PlayerName != out[j].PlayerName {
			return out[i].PlayerName < out[j].PlayerName
		}
		return out[i].LineupSlot < out[j].LineupSlot
	})
	return out
}

// WithTeamNames fills TeamName on every diff from the team index.
func (r Result) WithTeamNames(names map[int]string) Result {
	for i := range r.TeamDiffs {
		r.TeamDiffs[i].TeamName = teamName(names, r.TeamDiffs[i].TeamID)
	}
	for i := range r.PlayerDiffs {
		r.PlayerDiffs[i].TeamName = teamName(names, r.PlayerDiffs[i].TeamID)
	}
	return r
}

// TeamHeadlines renders the largest team swings regardless of sign.
func (r Result) TeamHeadlines() []string {
	n := min(len(r.TeamDiffs), HeadlineLimit)
	out := make([]string, 0, n)
	for _, d := range r.TeamDiffs[:n] {
		name := d.TeamName
		if name == "" {
			name = fmt.Sprintf("Team %d", d.TeamID)
		}
		out = append(out, fmt.Sprintf("%s %+.2f (%.2f → %.2f)", name, d.Delta, d.Previous, d.Current))
	}
	return out
}

// PlayerHeadlines renders the largest swings among players that count toward
// a team total.
func (r Result) PlayerHeadlines() []string {
	out := make([]string, 0, HeadlineLimit)
	for _, d := range r.PlayerDiffs {
		if len(out) == HeadlineLimit {
			break
		}
		if !d.CountsForScore {
			continue
		}
		team := d.TeamName
		if team == "" {
			team = fmt.Sprintf("Team %d", d.TeamID)
		}
		name := d.PlayerName
		if name == "" {
			name = "Player " + d.PlayerID
		}
		out = append(out, fmt.Sprintf("%s (%s, %s) %+.2f", name, team, d.LineupSlot, d.Delta))
	}
	return out
}

func teamName(names map[int]string, id int) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return ""
}

func significant(delta float64) bool {
	return math.Abs(delta) >= Threshold-thresholdEpsilon
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
