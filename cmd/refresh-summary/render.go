package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/albapepper/projection-refresher/internal/difflog"
)

var (
	labelColor = color.New(color.Bold)
	upColor    = color.New(color.FgGreen)
	downColor  = color.New(color.FgRed)
	quietColor = color.New(color.FgHiBlack)
)

// render writes a human-readable view of e.
func render(w io.Writer, e difflog.Entry) {
	labelColor.Fprintln(w, "Latest refresh diff")
	fmt.Fprintf(w, "  Finished:  %s\n", e.FinishedAt)
	if e.RecordedAt != "" {
		fmt.Fprintf(w, "  Recorded:  %s\n", e.RecordedAt)
	}
	fmt.Fprintf(w, "  Season:    %d\n", e.Season)
	fmt.Fprintf(w, "  Week:      %d\n", e.Week)

	if !e.HasChanges {
		msg := e.Message
		if msg == "" {
			msg = difflog.NoDeltasMessage
		}
		quietColor.Fprintf(w, "  %s\n", msg)
		return
	}

	teamDeltas := make([]float64, 0, len(e.TeamDiffs))
	for _, d := range e.TeamDiffs {
		teamDeltas = append(teamDeltas, d.Delta)
	}
	section(w, "Team swings", e.HeadlineTeams, teamDeltas)

	// Player headlines cover counting players only, in diff order.
	var playerDeltas []float64
	for _, d := range e.PlayerDiffs {
		if d.CountsForScore {
			playerDeltas = append(playerDeltas, d.Delta)
		}
	}
	section(w, "Player swings", e.HeadlinePlayers, playerDeltas)

	if e.ScoreArchive != "" {
		quietColor.Fprintf(w, "  scoreboard: %s\n", e.ScoreArchive)
	}
	if e.SimulationArchive != "" {
		quietColor.Fprintf(w, "  simulation: %s\n", e.SimulationArchive)
	}
}

func section(w io.Writer, title string, lines []string, deltas []float64) {
	if len(lines) == 0 {
		return
	}
	labelColor.Fprintf(w, "%s:\n", title)
	for i, ln := range lines {
		c := quietColor
		if i < len(deltas) {
			switch {
			case deltas[i] > 0:
				c = upColor
			case deltas[i] < 0:
				c = downColor
			}
		}
		c.Fprintf(w, "  %s\n", ln)
	}
}
