package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/albapepper/projection-refresher/internal/difflog"
	"github.com/albapepper/projection-refresher/internal/scores"
)

// runSummary executes the command against a diff log at path.
func runSummary(t *testing.T, path string) (string, error) {
	t.Helper()
	t.Setenv("DATA_ROOT", t.TempDir())
	t.Setenv("REFRESH_TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("REFRESH_DIFF_LOG_PATH", path)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	return out.String(), err
}

func TestSummaryMissingLog(t *testing.T) {
	out, err := runSummary(t, filepath.Join(t.TempDir(), "score_diffs.jsonl"))
	if err != nil {
		t.Fatalf("missing log must exit cleanly, got %v", err)
	}
	if !strings.Contains(out, "No diff entries recorded yet.") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestSummaryRendersNewestEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "score_diffs.jsonl")
	log := difflog.New(path, 10, nil)
	if err := log.Append(difflog.NewEntry("2025-10-12T16:00:00Z", 2025, 6, scores.Result{})); err != nil {
		t.Fatalf("Append: %v", err)
	}
	res := scores.Result{
		TeamDiffs: []scores.TeamDiff{{TeamID: 7, TeamName: "Gridiron Gurus", Previous: 84.2, Current: 91.7, Delta: 7.5}},
	}
	if err := log.Append(difflog.NewEntry("2025-10-12T17:00:00Z", 2025, 6, res)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	out, err := runSummary(t, path)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"Finished:  2025-10-12T17:00:00Z", "Gridiron Gurus +7.50 (84.20 → 91.70)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSummaryMalformedNewestLineFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "score_diffs.jsonl")
	body := `{"finishedAt":"2025-10-12T16:00:00Z","season":2025,"week":6}` + "\n" + "{not json\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := runSummary(t, path)
	if err == nil {
		t.Fatal("expected an error for a malformed newest entry")
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("error should name the log path, got %v", err)
	}
}

func TestSummaryRejectsBadConfig(t *testing.T) {
	t.Setenv("REFRESH_DIFF_LOG_LIMIT", "0")
	if _, err := runSummary(t, filepath.Join(t.TempDir(), "score_diffs.jsonl")); err == nil {
		t.Fatal("expected a configuration error")
	}
}
