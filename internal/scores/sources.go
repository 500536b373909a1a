package scores

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// Required weekly_scores CSV columns. Identity columns are optional so older
// extracts without player ids still diff at the team level.
var requiredCSVColumns = []string{"team_id", "score_total"}

// ErrMissingColumn is wrapped by ReadCSV when a required column is absent.
var ErrMissingColumn = errors.New("missing required column")

// ReadCSV parses a weekly_scores CSV extract into rows. Records with an
// unparseable team id or a non-finite score are skipped; a missing score
// counts as zero.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range requiredCSVColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	field := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}

		teamID, ok := parseTeamID(field(rec, "team_id"))
		if !ok {
			continue
		}
		score, _ := strconv.ParseFloat(field(rec, "score_total"), 64)
		if !finite(score) {
			continue
		}

		counts := true
		if _, has := idx["counts_for_score"]; has {
			counts = truthy(field(rec, "counts_for_score"))
		}

		rows = append(rows, CSV(CSVRow{
			TeamID:         teamID,
			PlayerID:       field(rec, "espn_player_id"),
			PlayerName:     field(rec, "player_name"),
			LineupSlot:     field(rec, "lineup_slot"),
			ScoreTotal:     score,
			CountsForScore: counts,
		}))
	}
	return rows, nil
}

func parseTeamID(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// Live scoreboard / roster JSON
// --------------------------------------------------------------------------

// espnView is the subset of the ESPN team/roster payload both the live
// scoreboard and the roster snapshot share.
type espnView struct {
	SeasonID        int `json:"seasonId"`
	ScoringPeriodID int `json:"scoringPeriodId"`
	Teams           []struct {
		ID     int `json:"id"`
		Roster struct {
			Entries []espnEntry `json:"entries"`
		} `json:"roster"`
	} `json:"teams"`
}

type espnEntry struct {
	PlayerID        any `json:"playerId"`
	LineupSlotID    int `json:"lineupSlotId"`
	PlayerPoolEntry struct {
		ID               any `json:"id"`
		AppliedStatTotal any `json:"appliedStatTotal"`
		Player           struct {
			ID       any    `json:"id"`
			FullName string `json:"fullName"`
		} `json:"player"`
	} `json:"playerPoolEntry"`
}

func (e espnEntry) playerID() string {
	for _, v := range []any{e.PlayerPoolEntry.Player.ID, e.PlayerID, e.PlayerPoolEntry.ID} {
		if id := extractID(v); id != "" {
			return id
		}
	}
	return ""
}

func decodeView(data []byte) (espnView, error) {
	var v espnView
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return espnView{}, err
	}
	return v, nil
}

// RosterSlot is one player's slot in the authoritative weekly roster.
type RosterSlot struct {
	PlayerName string
	SlotID     int
}

// WeeklyRoster is the authoritative per-week roster: team id → player id →
// slot. Order lists the (team, player) pairs as they appeared.
type WeeklyRoster struct {
	Slots map[int]map[string]RosterSlot
	Order []RosterRef
}

// RosterRef addresses one rostered player.
type RosterRef struct {
	TeamID   int
	PlayerID string
}

func (w *WeeklyRoster) lookup(teamID int, playerID string) (RosterSlot, bool) {
	if w == nil {
		return RosterSlot{}, false
	}
	slot, ok := w.Slots[teamID][playerID]
	return slot, ok
}

// ParseRoster decodes an ESPN mRoster view into a WeeklyRoster.
func ParseRoster(data []byte) (*WeeklyRoster, error) {
	v, err := decodeView(data)
	if err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	wr := &WeeklyRoster{Slots: make(map[int]map[string]RosterSlot)}
	for _, team := range v.Teams {
		for _, e := range team.Roster.Entries {
			pid := e.playerID()
			if pid == "" {
				continue
			}
			if wr.Slots[team.ID] == nil {
				wr.Slots[team.ID] = make(map[string]RosterSlot)
			}
			if _, dup := wr.Slots[team.ID][pid]; !dup {
				wr.Order = append(wr.Order, RosterRef{TeamID: team.ID, PlayerID: pid})
			}
			wr.Slots[team.ID][pid] = RosterSlot{PlayerName: e.PlayerPoolEntry.Player.FullName, SlotID: e.LineupSlotID}
		}
	}
	return wr, nil
}

// ParseScoreboard decodes a live-scoreboard payload into rows. When roster is
// non-nil it decides each player's slot and counting status, and every
// rostered player is emitted, with a zero score if the live payload omits
// them.
func ParseScoreboard(data []byte, roster *WeeklyRoster) ([]Row, error) {
	v, err := decodeView(data)
	if err != nil {
		return nil, fmt.Errorf("decode scoreboard: %w", err)
	}

	seen := make(map[RosterRef]bool)
	var rows []Row
	for _, team := range v.Teams {
		for _, e := range team.Roster.Entries {
			pid := e.playerID()
			score, _ := ExtractValue(e.PlayerPoolEntry.AppliedStatTotal)
			entry := RosterEntry{
				TeamID:     team.ID,
				PlayerID:   pid,
				PlayerName: e.PlayerPoolEntry.Player.FullName,
				SlotID:     e.LineupSlotID,
				Score:      score,
			}
			if slot, ok := roster.lookup(team.ID, pid); ok {
				entry.SlotID = slot.SlotID
				counts := SlotCounts(slot.SlotID)
				entry.Counts = &counts
				if entry.PlayerName == "" {
					entry.PlayerName = slot.PlayerName
				}
			}
			seen[RosterRef{TeamID: team.ID, PlayerID: pid}] = true
			rows = append(rows, Roster(entry))
		}
	}

	if roster != nil {
		for _, ref := range roster.Order {
			if seen[ref] {
				continue
			}
			slot := roster.Slots[ref.TeamID][ref.PlayerID]
			counts := SlotCounts(slot.SlotID)
			rows = append(rows, Roster(RosterEntry{
				TeamID:     ref.TeamID,
				PlayerID:   ref.PlayerID,
				PlayerName: slot.PlayerName,
				SlotID:     slot.SlotID,
				Counts:     &counts,
			}))
		}
	}
	return rows, nil
}

// Format identifies a scoreboard artifact's encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// FormatOf infers the artifact format from a file name.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".csv":
		return FormatCSV, true
	default:
		return "", false
	}
}

// Decode builds a snapshot from raw artifact bytes in the given format.
func Decode(data []byte, format Format, week int, roster *WeeklyRoster) (Snapshot, error) {
	var (
		rows []Row
		err  error
	)
	switch format {
	case FormatJSON:
		rows, err = ParseScoreboard(data, roster)
	case FormatCSV:
		rows, err = ReadCSV(bytes.NewReader(data))
	default:
		return Snapshot{}, fmt.Errorf("unsupported scoreboard format %q", format)
	}
	if err != nil {
		return Snapshot{}, err
	}
	return BuildSnapshot(rows, week), nil
}
