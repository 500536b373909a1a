package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/albapepper/projection-refresher/internal/config"
	"github.com/albapepper/projection-refresher/internal/difflog"
)

func TestRefreshDepsLogUnderRefreshComponent(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		APIBaseURL:          "http://127.0.0.1:0/api/simulator",
		ScenarioID:          "baseline",
		RequestTimeout:      time.Second,
		DataRoot:            filepath.Join(dir, "data"),
		HistoryRoot:         filepath.Join(dir, "history"),
		DiffLogPath:         filepath.Join(dir, "history", "score_diffs.jsonl"),
		SimulationRetention: 3,
		ScoreRetention:      3,
		DiffLogLimit:        1,
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, archiver, diffLog := refreshDeps(cfg, logger)

	if res, err := archiver.Archive("2025-10-12T17:00:00Z"); err != nil || res != nil {
		t.Fatalf("Archive on empty data root = %+v, %v", res, err)
	}
	for _, at := range []string{"2025-10-12T17:00:00Z", "2025-10-12T18:00:00Z"} {
		if err := diffLog.Append(difflog.Entry{FinishedAt: at, Season: 2025, Week: 6}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	seen := map[string]bool{}
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("bad log line %q: %v", sc.Text(), err)
		}
		msg, _ := rec["msg"].(string)
		if rec["component"] != "refresh" {
			t.Fatalf("record %q logged without component=refresh: %v", msg, rec)
		}
		seen[msg] = true
	}
	for _, want := range []string{"No baseline simulation to archive", "Pruned diff log"} {
		if !seen[want] {
			t.Fatalf("expected %q to be logged; saw %v", want, seen)
		}
	}
}
