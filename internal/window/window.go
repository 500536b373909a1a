// Package window maps wall-clock time to a refresh polling cadence.
//
// A static weekly table describes when NFL games are usually live; date-keyed
// overrides cover holidays, Saturday slates, and international games. When no
// window matches, the idle interval applies.
package window

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// IdleLabel is the label reported when no window matches.
const IdleLabel = "off-hours"

// Source identifies which table produced a Resolution.
type Source string

const (
	SourceOverride Source = "override"
	SourceWeekly   Source = "weekly"
	SourceIdle     Source = "idle"
)

// TimeWindow is a half-open [StartMinute, EndMinute) range within one civil day.
type TimeWindow struct {
	StartMinute     int
	EndMinute       int
	IntervalMinutes int
	Label           string
}

// Contains reports whether minute-of-day m falls inside the window.
func (w TimeWindow) Contains(m int) bool {
	return m >= w.StartMinute && m < w.EndMinute
}

// Resolution is the cadence chosen for one instant.
type Resolution struct {
	IntervalMinutes int
	Label           string
	Source          Source
	DateKey         string
}

// Interval returns the resolved cadence as a duration.
func (r Resolution) Interval() time.Duration {
	return time.Duration(r.IntervalMinutes) * time.Minute
}

// Weekly is a per-weekday window table indexed by time.Weekday (0=Sunday).
type Weekly [7][]TimeWindow

// Overrides maps an ISO date key (YYYY-MM-DD) to the windows for that date.
type Overrides map[string][]TimeWindow

// DefaultWeekly returns the standard NFL game-day table. Windows spanning
// midnight are split into adjoining entries on consecutive weekdays.
func DefaultWeekly(gameIntervalMinutes int) Weekly {
	g := gameIntervalMinutes
	var w Weekly
	w[time.Sunday] = []TimeWindow{
		{StartMinute: hm(9, 0), EndMinute: hm(19, 0), IntervalMinutes: g, Label: "sunday-afternoon"},
		{StartMinute: hm(19, 0), EndMinute: hm(24, 0), IntervalMinutes: g, Label: "sunday-night"},
	}
	w[time.Monday] = []TimeWindow{
		{StartMinute: hm(0, 0), EndMinute: hm(1, 0), IntervalMinutes: g, Label: "sunday-night"},
		{StartMinute: hm(19, 0), EndMinute: hm(24, 0), IntervalMinutes: g, Label: "monday-night"},
	}
	w[time.Tuesday] = []TimeWindow{
		{StartMinute: hm(0, 0), EndMinute: hm(1, 0), IntervalMinutes: g, Label: "monday-night"},
	}
	w[time.Thursday] = []TimeWindow{
		{StartMinute: hm(19, 0), EndMinute: hm(24, 0), IntervalMinutes: g, Label: "thursday-night"},
	}
	w[time.Friday] = []TimeWindow{
		{StartMinute: hm(0, 0), EndMinute: hm(1, 0), IntervalMinutes: g, Label: "thursday-night"},
	}
	return w
}

func hm(h, m int) int { return h*60 + m }

// Resolver picks the polling interval for an instant. It is safe for
// concurrent use once constructed; nothing mutates it.
type Resolver struct {
	loc          *time.Location
	weekly       Weekly
	overrides    Overrides
	idleInterval int
}

// NewResolver builds a resolver. idleIntervalMinutes must be positive so every
// resolution yields a usable cadence.
func NewResolver(loc *time.Location, weekly Weekly, overrides Overrides, idleIntervalMinutes int) (*Resolver, error) {
	if idleIntervalMinutes <= 0 {
		return nil, fmt.Errorf("idle interval must be positive, got %d", idleIntervalMinutes)
	}
	if loc == nil {
		loc = time.UTC
	}
	if overrides == nil {
		overrides = Overrides{}
	}
	return &Resolver{loc: loc, weekly: weekly, overrides: overrides, idleInterval: idleIntervalMinutes}, nil
}

// Resolve returns the cadence for now. Overrides for the civil date win over
// the weekly table; within a table the first declared matching window wins.
func (r *Resolver) Resolve(now time.Time) Resolution {
	local := now.In(r.loc)
	minute := local.Hour()*60 + local.Minute()
	dateKey := local.Format(time.DateOnly)

	if windows, ok := r.overrides[dateKey]; ok {
		if w, ok := firstMatch(windows, minute); ok {
			return Resolution{IntervalMinutes: w.IntervalMinutes, Label: w.Label, Source: SourceOverride, DateKey: dateKey}
		}
	}
	if w, ok := firstMatch(r.weekly[local.Weekday()], minute); ok {
		return Resolution{IntervalMinutes: w.IntervalMinutes, Label: w.Label, Source: SourceWeekly, DateKey: dateKey}
	}
	return Resolution{IntervalMinutes: r.idleInterval, Label: IdleLabel, Source: SourceIdle, DateKey: dateKey}
}

// ResolveAt resolves a weekday/minute pair against the weekly table only.
func (r *Resolver) ResolveAt(weekday time.Weekday, minute int) Resolution {
	if w, ok := firstMatch(r.weekly[weekday], minute); ok {
		return Resolution{IntervalMinutes: w.IntervalMinutes, Label: w.Label, Source: SourceWeekly}
	}
	return Resolution{IntervalMinutes: r.idleInterval, Label: IdleLabel, Source: SourceIdle}
}

func firstMatch(windows []TimeWindow, minute int) (TimeWindow, bool) {
	for _, w := range windows {
		// A window that lost its interval cannot be used; skip it so the
		// fallback still guarantees a positive cadence.
		if w.IntervalMinutes > 0 && w.Contains(minute) {
			return w, true
		}
	}
	return TimeWindow{}, false
}
