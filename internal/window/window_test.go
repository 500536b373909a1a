package window

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const (
	testGame = 10
	testIdle = 120
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func eastern(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func newTestResolver(t *testing.T, overrides Overrides) *Resolver {
	t.Helper()
	r, err := NewResolver(eastern(t), DefaultWeekly(testGame), overrides, testIdle)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func TestResolveSundayAfternoon(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t, nil)

	// 2025-10-12 is a Sunday; 11:40 is minute 700.
	now := time.Date(2025, 10, 12, 11, 40, 0, 0, eastern(t))
	got := r.Resolve(now)
	if got.IntervalMinutes != testGame {
		t.Fatalf("IntervalMinutes = %d, want %d", got.IntervalMinutes, testGame)
	}
	if got.Label != "sunday-afternoon" {
		t.Fatalf("Label = %q, want sunday-afternoon", got.Label)
	}
	if got.Source != SourceWeekly {
		t.Fatalf("Source = %s, want weekly", got.Source)
	}

	if at := r.ResolveAt(time.Sunday, 700); at.Label != "sunday-afternoon" {
		t.Fatalf("ResolveAt(Sunday, 700) = %q", at.Label)
	}
}

func TestResolveWednesdayIsIdle(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t, nil)

	now := time.Date(2025, 10, 15, 10, 0, 0, 0, eastern(t))
	got := r.Resolve(now)
	if got.IntervalMinutes != testIdle || got.Label != IdleLabel {
		t.Fatalf("got %+v, want idle %d/%s", got, testIdle, IdleLabel)
	}
	if got.DateKey != "2025-10-15" {
		t.Fatalf("DateKey = %q", got.DateKey)
	}
}

func TestResolveConvertsToCivilZone(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t, nil)

	// 2025-10-13 03:30 UTC is Sunday 23:30 in New York.
	now := time.Date(2025, 10, 13, 3, 30, 0, 0, time.UTC)
	got := r.Resolve(now)
	if got.Label != "sunday-night" {
		t.Fatalf("Label = %q, want sunday-night", got.Label)
	}
	if got.DateKey != "2025-10-12" {
		t.Fatalf("DateKey = %q, want civil date 2025-10-12", got.DateKey)
	}
}

func TestResolveMidnightSpanAdjoins(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t, nil)

	tests := []struct {
		weekday time.Weekday
		minute  int
		label   string
	}{
		{time.Sunday, 1439, "sunday-night"},
		{time.Monday, 0, "sunday-night"},
		{time.Monday, 59, "sunday-night"},
		{time.Monday, 60, IdleLabel},
		{time.Sunday, 540, "sunday-afternoon"},
		{time.Sunday, 539, IdleLabel},
		{time.Sunday, 1140, "sunday-night"},
	}
	for _, tt := range tests {
		if got := r.ResolveAt(tt.weekday, tt.minute); got.Label != tt.label {
			t.Errorf("ResolveAt(%s, %d) = %q, want %q", tt.weekday, tt.minute, got.Label, tt.label)
		}
	}
}

func TestOverrideTakesPrecedence(t *testing.T) {
	t.Parallel()
	overrides := Overrides{
		"2025-10-12": {{StartMinute: hm(9, 30), EndMinute: hm(12, 0), IntervalMinutes: 3, Label: "london-game"}},
	}
	r := newTestResolver(t, overrides)
	loc := eastern(t)

	got := r.Resolve(time.Date(2025, 10, 12, 11, 40, 0, 0, loc))
	if got.Label != "london-game" || got.IntervalMinutes != 3 || got.Source != SourceOverride {
		t.Fatalf("override not applied: %+v", got)
	}

	// Outside the override window the weekly table still applies.
	got = r.Resolve(time.Date(2025, 10, 12, 13, 0, 0, 0, loc))
	if got.Label != "sunday-afternoon" {
		t.Fatalf("expected weekly fallback after override window, got %+v", got)
	}

	// Another Sunday is untouched.
	got = r.Resolve(time.Date(2025, 10, 19, 11, 40, 0, 0, loc))
	if got.Source != SourceWeekly {
		t.Fatalf("override leaked to another date: %+v", got)
	}
}

func TestResolveFirstDeclaredWindowWins(t *testing.T) {
	t.Parallel()
	var weekly Weekly
	for d := range weekly {
		weekly[d] = []TimeWindow{
			{StartMinute: 100, EndMinute: 300, IntervalMinutes: 5, Label: "first"},
			{StartMinute: 200, EndMinute: 400, IntervalMinutes: 7, Label: "second"},
		}
	}
	r, err := NewResolver(time.UTC, weekly, nil, testIdle)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	for d := time.Sunday; d <= time.Saturday; d++ {
		for m := 0; m < 24*60; m++ {
			got := r.ResolveAt(d, m)
			var want string
			switch {
			case m >= 100 && m < 300:
				want = "first"
			case m >= 300 && m < 400:
				want = "second"
			default:
				want = IdleLabel
			}
			if got.Label != want {
				t.Fatalf("ResolveAt(%s, %d) = %q, want %q", d, m, got.Label, want)
			}
			if got.IntervalMinutes <= 0 {
				t.Fatalf("non-positive interval at %s %d", d, m)
			}
		}
	}
}

func TestNewResolverRejectsNonPositiveIdle(t *testing.T) {
	t.Parallel()
	if _, err := NewResolver(time.UTC, Weekly{}, nil, 0); err == nil {
		t.Fatal("expected error for zero idle interval")
	}
}

func TestParseOverridesDropsMalformedEntries(t *testing.T) {
	t.Parallel()
	data := []byte(`{
		"2025-11-27": [
			{"start": "12:00", "end": "24:00", "intervalMinutes": 5, "label": "thanksgiving"},
			{"start": "25:00", "end": "26:00", "intervalMinutes": 5, "label": "bad-hour"},
			{"start": "10:00", "end": "09:00", "intervalMinutes": 5, "label": "backwards"},
			{"start": "08:00", "end": "09:00", "intervalMinutes": 0, "label": "zero"},
			{"start": "07:00", "end": "08:00", "intervalMinutes": 15}
		],
		"not-a-date": [{"start": "00:00", "end": "01:00", "intervalMinutes": 5, "label": "x"}],
		"2025-12-20": "oops"
	}`)

	got, err := ParseOverrides(data, discardLogger())
	if err != nil {
		t.Fatalf("ParseOverrides: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 date, got %d: %+v", len(got), got)
	}
	windows := got["2025-11-27"]
	if len(windows) != 2 {
		t.Fatalf("expected 2 surviving windows, got %d: %+v", len(windows), windows)
	}
	if windows[0].Label != "thanksgiving" || windows[0].EndMinute != 1440 {
		t.Fatalf("unexpected first window: %+v", windows[0])
	}
	if windows[1].Label != "override" {
		t.Fatalf("empty label should default to override, got %q", windows[1].Label)
	}
}

func TestLoadOverridesMissingAndCorruptFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	if got := LoadOverrides(filepath.Join(dir, "absent.json"), discardLogger()); len(got) != 0 {
		t.Fatalf("missing file should yield no overrides, got %d", len(got))
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := LoadOverrides(bad, discardLogger()); len(got) != 0 {
		t.Fatalf("corrupt file should yield no overrides, got %d", len(got))
	}

	good := filepath.Join(dir, "good.json")
	body := `{"2025-12-20": [{"start": "13:00", "end": "23:30", "intervalMinutes": 8, "label": "saturday-slate"}]}`
	if err := os.WriteFile(good, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	got := LoadOverrides(good, discardLogger())
	if w := got["2025-12-20"]; len(w) != 1 || w[0].StartMinute != 780 || w[0].EndMinute != 1410 {
		t.Fatalf("unexpected overrides: %+v", got)
	}
}

func TestParseHHMM(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"11:40", 700, true},
		{"24:00", 1440, true},
		{"24:01", 0, false},
		{"9:5", 0, false},
		{"noon", 0, false},
	}
	for _, tt := range tests {
		got, err := parseHHMM(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("parseHHMM(%q) err = %v, want ok=%v", tt.in, err, tt.ok)
		}
		if tt.ok && got != tt.want {
			t.Fatalf("parseHHMM(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
