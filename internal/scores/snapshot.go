package scores

import "fmt"

// TeamTotal is the sum of a team's counting players.
type TeamTotal struct {
	Total   float64 `json:"total"`
	Counted int     `json:"counted"`
}

// Snapshot is a normalized point-in-time scoring state for one week.
type Snapshot struct {
	Week         int                    `json:"week"`
	TeamTotals   map[int]TeamTotal      `json:"teamTotals"`
	PlayerScores map[string]PlayerScore `json:"playerScores"`
}

// PlayerKey identifies a player line. The lineup slot is part of the key so a
// slot change shows up as its own line.
func PlayerKey(teamID int, playerID, lineupSlot string) string {
	return fmt.Sprintf("%d|%s|%s", teamID, playerID, lineupSlot)
}

// BuildSnapshot folds rows into a Snapshot. Rows with an empty variant
// payload are skipped. Duplicate keys accumulate.
func BuildSnapshot(rows []Row, week int) Snapshot {
	snap := Snapshot{
		Week:         week,
		TeamTotals:   make(map[int]TeamTotal),
		PlayerScores: make(map[string]PlayerScore, len(rows)),
	}
	for _, row := range rows {
		ps, ok := row.Canonical()
		if !ok {
			continue
		}
		id := ps.PlayerID
		if id == "" {
			id = ps.PlayerName
		}
		key := PlayerKey(ps.TeamID, id, ps.LineupSlot)
		tt := snap.TeamTotals[ps.TeamID]
		if ps.CountsForScore {
			tt.Total += ps.Score
			tt.Counted++
		}
		if prev, exists := snap.PlayerScores[key]; exists {
			// Earlier rows under this key were left out of the total while
			// the line was not counting.
			if ps.CountsForScore && !prev.CountsForScore {
				tt.Total += prev.Score
			}
			ps.Score += prev.Score
			ps.CountsForScore = ps.CountsForScore || prev.CountsForScore
		}
		snap.PlayerScores[key] = ps
		snap.TeamTotals[ps.TeamID] = tt
	}
	return snap
}

// Empty reports whether the snapshot carries no scoring state.
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.TeamTotals) == 0 && len(s.PlayerScores) == 0)
}
