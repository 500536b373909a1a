package scores

import (
	"math"
	"strings"
	"testing"
)

func csvRow(team int, id, name, slot string, score float64, counts bool) Row {
	return CSV(CSVRow{TeamID: team, PlayerID: id, PlayerName: name, LineupSlot: slot, ScoreTotal: score, CountsForScore: counts})
}

func TestDiffTeamSwing(t *testing.T) {
	t.Parallel()
	prev := BuildSnapshot([]Row{
		csvRow(7, "1", "Alpha QB", "QB", 50.0, true),
		csvRow(7, "2", "Bravo RB", "RB", 34.2, true),
	}, 6)
	curr := BuildSnapshot([]Row{
		csvRow(7, "1", "Alpha QB", "QB", 50.0, true),
		csvRow(7, "2", "Bravo RB", "RB", 41.7, true),
	}, 6)

	res := Diff(&prev, &curr)
	if len(res.TeamDiffs) != 1 {
		t.Fatalf("expected 1 team diff, got %+v", res.TeamDiffs)
	}
	td := res.TeamDiffs[0]
	if td.TeamID != 7 || td.Delta != 7.5 || td.Previous != 84.2 || td.Current != 91.7 {
		t.Fatalf("unexpected team diff: %+v", td)
	}
	if len(res.PlayerDiffs) != 1 || res.PlayerDiffs[0].PlayerName != "Bravo RB" || res.PlayerDiffs[0].Delta != 7.5 {
		t.Fatalf("unexpected player diffs: %+v", res.PlayerDiffs)
	}
}

func TestDiffBenchZeroNotEmitted(t *testing.T) {
	t.Parallel()
	prev := BuildSnapshot([]Row{csvRow(3, "9", "Bench Guy", "BE", 0, false)}, 4)
	curr := BuildSnapshot([]Row{csvRow(3, "9", "Bench Guy", "BE", 0, false)}, 4)

	res := Diff(&prev, &curr)
	if res.HasChanges() {
		t.Fatalf("expected no diffs, got %+v", res)
	}
}

func TestDiffSelfIsEmpty(t *testing.T) {
	t.Parallel()
	s := BuildSnapshot([]Row{
		csvRow(1, "1", "A", "QB", 22.4, true),
		csvRow(2, "2", "B", "WR", 13.1, true),
		csvRow(2, "3", "C", "BE", 9.9, false),
	}, 9)
	if res := Diff(&s, &s); res.HasChanges() {
		t.Fatalf("Diff(S, S) should be empty, got %+v", res)
	}
}

func TestDiffAcrossWeeksIsEmpty(t *testing.T) {
	t.Parallel()
	prev := BuildSnapshot([]Row{csvRow(1, "1", "A", "QB", 0, true)}, 5)
	curr := BuildSnapshot([]Row{csvRow(1, "1", "A", "QB", 40, true)}, 6)
	if res := Diff(&prev, &curr); res.HasChanges() {
		t.Fatalf("cross-week diff should be empty, got %+v", res)
	}
	if res := Diff(nil, &curr); res.HasChanges() {
		t.Fatalf("diff against nil should be empty, got %+v", res)
	}
}

func TestDiffThreshold(t *testing.T) {
	t.Parallel()
	prev := BuildSnapshot([]Row{
		csvRow(1, "1", "Tiny", "QB", 10.00, true),
		csvRow(2, "2", "Edge", "QB", 10.10, true),
		csvRow(3, "3", "Clear", "QB", 10.00, true),
	}, 2)
	curr := BuildSnapshot([]Row{
		csvRow(1, "1", "Tiny", "QB", 10.04, true),
		csvRow(2, "2", "Edge", "QB", 10.15, true),
		csvRow(3, "3", "Clear", "QB", 9.00, true),
	}, 2)

	res := Diff(&prev, &curr)
	for _, d := range res.TeamDiffs {
		if math.Abs(d.Delta) < Threshold {
			t.Fatalf("sub-threshold team diff emitted: %+v", d)
		}
		if d.TeamID == 1 {
			t.Fatalf("team 1 moved 0.04 and must not be emitted")
		}
	}
	if len(res.TeamDiffs) != 2 {
		t.Fatalf("expected 2 team diffs, got %+v", res.TeamDiffs)
	}
	if res.TeamDiffs[0].TeamID != 3 || res.TeamDiffs[0].Delta != -1 {
		t.Fatalf("expected largest |delta| first, got %+v", res.TeamDiffs)
	}
	if res.TeamDiffs[1].Delta != 0.05 {
		t.Fatalf("0.05 delta should be kept, got %+v", res.TeamDiffs[1])
	}
	for _, d := range res.PlayerDiffs {
		if math.Abs(d.Delta) < Threshold {
			t.Fatalf("sub-threshold player diff emitted: %+v", d)
		}
	}
}

func TestDiffSlotChangeIsDistinctLine(t *testing.T) {
	t.Parallel()
	prev := BuildSnapshot([]Row{csvRow(4, "11", "Flex Man", "BE", 12, false)}, 3)
	curr := BuildSnapshot([]Row{csvRow(4, "11", "Flex Man", "FLEX", 12, true)}, 3)

	res := Diff(&prev, &curr)
	if len(res.PlayerDiffs) != 2 {
		t.Fatalf("expected two player lines for a slot change, got %+v", res.PlayerDiffs)
	}
	slots := map[string]float64{}
	for _, d := range res.PlayerDiffs {
		slots[d.LineupSlot] = d.Delta
	}
	if slots["FLEX"] != 12 || slots["BE"] != -12 {
		t.Fatalf("unexpected slot deltas: %+v", slots)
	}
	if len(res.TeamDiffs) != 1 || res.TeamDiffs[0].Delta != 12 {
		t.Fatalf("team total should move by the newly counted score: %+v", res.TeamDiffs)
	}
}

func TestHeadlines(t *testing.T) {
	t.Parallel()
	var prevRows, currRows []Row
	for team := 1; team <= 8; team++ {
		prevRows = append(prevRows, csvRow(team, "s", "Starter", "QB", 10, true))
		currRows = append(currRows, csvRow(team, "s", "Starter", "QB", 10+float64(team), true))
		prevRows = append(prevRows, csvRow(team, "b", "Bencher", "BE", 0, false))
		currRows = append(currRows, csvRow(team, "b", "Bencher", "BE", 50, false))
	}
	prev := BuildSnapshot(prevRows, 1)
	curr := BuildSnapshot(currRows, 1)

	res := Diff(&prev, &curr).WithTeamNames(map[int]string{8: "Team Eight"})
	teams := res.TeamHeadlines()
	if len(teams) != HeadlineLimit {
		t.Fatalf("expected %d team headlines, got %d", HeadlineLimit, len(teams))
	}
	if teams[0] != "Team Eight +8.00 (10.00 → 18.00)" {
		t.Fatalf("unexpected top headline %q", teams[0])
	}
	if !strings.HasPrefix(teams[1], "Team 7 +7.00") {
		t.Fatalf("unexpected second headline %q", teams[1])
	}

	players := res.PlayerHeadlines()
	if len(players) != HeadlineLimit {
		t.Fatalf("expected %d player headlines, got %d", HeadlineLimit, len(players))
	}
	for _, h := range players {
		if strings.Contains(h, "Bencher") {
			t.Fatalf("bench swing leaked into scoring headlines: %q", h)
		}
	}
	if players[0] != "Starter (Team Eight, QB) +8.00" {
		t.Fatalf("unexpected top player headline %q", players[0])
	}
}

func TestDiffPlayerRemovedAndAdded(t *testing.T) {
	t.Parallel()
	prev := BuildSnapshot([]Row{csvRow(5, "1", "Gone", "WR", 6.5, true)}, 8)
	curr := BuildSnapshot([]Row{csvRow(5, "2", "New", "WR", 3.0, true)}, 8)

	res := Diff(&prev, &curr)
	if len(res.PlayerDiffs) != 2 {
		t.Fatalf("expected 2 player diffs, got %+v", res.PlayerDiffs)
	}
	if res.PlayerDiffs[0].PlayerName != "Gone" || res.PlayerDiffs[0].Current != 0 || res.PlayerDiffs[0].Delta != -6.5 {
		t.Fatalf("unexpected removal diff: %+v", res.PlayerDiffs[0])
	}
	if len(res.TeamDiffs) != 1 || res.TeamDiffs[0].Delta != -3.5 {
		t.Fatalf("unexpected team diff: %+v", res.TeamDiffs)
	}
}
