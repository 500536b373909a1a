// Package scores normalizes point-in-time fantasy scoring state and computes
// per-team and per-player deltas between two snapshots.
//
// Two source shapes feed one canonical form: flat weekly_scores CSV rows and
// nested live-scoreboard roster entries. Each is a Row variant with its own
// conversion into PlayerScore.
package scores

import (
	"strconv"
	"strings"
)

// LineupSlotNames renders ESPN lineup slot ids.
var LineupSlotNames = map[int]string{
	0:  "QB",
	1:  "TQB",
	2:  "RB",
	3:  "RB/WR",
	4:  "WR",
	5:  "WR/TE",
	6:  "TE",
	7:  "OP",
	8:  "DT",
	9:  "DE",
	10: "LB",
	11: "DL",
	12: "CB",
	13: "S",
	14: "DB",
	15: "DP",
	16: "D/ST",
	17: "K",
	18: "P",
	19: "HC",
	20: "BE",
	21: "IR",
	22: "FLEX",
	23: "EDR",
	24: "Rookie",
	25: "Taxi",
	26: "ER",
	27: "Rookie Bench",
}

// reservedSlots never count toward a team total on their own: bench, IR,
// rookie, taxi, rookie bench.
var reservedSlots = map[int]bool{20: true, 21: true, 24: true, 25: true, 27: true}

// SlotLabel renders a slot id, falling back to the numeric id.
func SlotLabel(id int) string {
	if name, ok := LineupSlotNames[id]; ok {
		return name
	}
	return strconv.Itoa(id)
}

// SlotCounts reports whether a player in slot id contributes to the total.
func SlotCounts(id int) bool { return !reservedSlots[id] }

// RowKind tags the Row variant.
type RowKind int

const (
	RowCSV RowKind = iota + 1
	RowRoster
)

// Row is one input row in either source shape. Exactly one of CSV or Roster
// is set, matching Kind.
type Row struct {
	Kind   RowKind
	CSV    *CSVRow
	Roster *RosterEntry
}

// CSVRow is a flattened weekly_scores CSV record.
type CSVRow struct {
	TeamID         int
	PlayerID       string
	PlayerName     string
	LineupSlot     string
	ScoreTotal     float64
	CountsForScore bool
}

// RosterEntry is one live-scoreboard roster entry, with the counting decision
// already settled against the authoritative roster when one was available.
type RosterEntry struct {
	TeamID     int
	PlayerID   string
	PlayerName string
	SlotID     int
	Score      float64
	// Counts, when non-nil, replaces the slot-based determination.
	Counts *bool
}

// PlayerScore is the canonical per-player scoring state.
type PlayerScore struct {
	TeamID         int     `json:"teamId"`
	PlayerID       string  `json:"playerId"`
	PlayerName     string  `json:"playerName"`
	LineupSlot     string  `json:"lineupSlot"`
	Score          float64 `json:"score"`
	CountsForScore bool    `json:"countsForScore"`
}

// CSV wraps a CSVRow as a Row.
func CSV(r CSVRow) Row { return Row{Kind: RowCSV, CSV: &r} }

// Roster wraps a RosterEntry as a Row.
func Roster(e RosterEntry) Row { return Row{Kind: RowRoster, Roster: &e} }

// Canonical converts the row into a PlayerScore. ok is false for a row whose
// variant payload is missing.
func (r Row) Canonical() (PlayerScore, bool) {
	switch r.Kind {
	case RowCSV:
		if r.CSV == nil {
			return PlayerScore{}, false
		}
		return fromCSV(*r.CSV), true
	case RowRoster:
		if r.Roster == nil {
			return PlayerScore{}, false
		}
		return fromRoster(*r.Roster), true
	default:
		return PlayerScore{}, false
	}
}

func fromCSV(r CSVRow) PlayerScore {
	return PlayerScore{
		TeamID:         r.TeamID,
		PlayerID:       normalizeID(r.PlayerID),
		PlayerName:     strings.TrimSpace(r.PlayerName),
		LineupSlot:     strings.TrimSpace(r.LineupSlot),
		Score:          r.ScoreTotal,
		CountsForScore: r.CountsForScore,
	}
}

func fromRoster(e RosterEntry) PlayerScore {
	counts := SlotCounts(e.SlotID)
	if e.Counts != nil {
		counts = *e.Counts
	}
	return PlayerScore{
		TeamID:         e.TeamID,
		PlayerID:       normalizeID(e.PlayerID),
		PlayerName:     strings.TrimSpace(e.PlayerName),
		LineupSlot:     SlotLabel(e.SlotID),
		Score:          e.Score,
		CountsForScore: counts,
	}
}

// normalizeID strips the ".0" pandas leaves on integer ids.
func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	if f, err := strconv.ParseFloat(id, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return id
}
