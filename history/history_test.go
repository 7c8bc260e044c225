package history

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testManager(t *testing.T, jsonl bool) (*Manager, Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{DBPath: filepath.Join(dir, "history.sqlite")}
	if jsonl {
		cfg.JSONLPath = filepath.Join(dir, "history.jsonl")
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, cfg
}

func TestRecordAndListRecent(t *testing.T) {
	m, cfg := testManager(t, false)
	ctx := context.Background()

	started := time.Date(2026, 8, 27, 8, 0, 0, 0, time.UTC)
	for i, status := range []string{StatusDisplayed, StatusSkipped, StatusAborted} {
		step := ""
		if status == StatusAborted {
			step = "execute"
		}
		m.Record(ctx, Outcome{
			CycleID:    "cycle-" + status,
			StartedAt:  started.Add(time.Duration(i) * time.Minute),
			PlaylistID: "daily",
			PluginID:   "clock",
			Status:     status,
			Step:       step,
			ElapsedMS:  int64(10 * (i + 1)),
		})
	}

	outcomes, err := ListRecent(ctx, cfg.DBPath, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("len = %d, want 2", len(outcomes))
	}
	// Newest first.
	if outcomes[0].CycleID != "cycle-"+StatusAborted {
		t.Fatalf("first = %+v", outcomes[0])
	}
	if outcomes[0].Step != "execute" {
		t.Fatalf("step lost: %+v", outcomes[0])
	}
	if !outcomes[1].StartedAt.Equal(started.Add(time.Minute)) {
		t.Fatalf("timestamp lost: %+v", outcomes[1])
	}
}

func TestManualFlagRoundTrips(t *testing.T) {
	m, cfg := testManager(t, false)
	ctx := context.Background()
	m.Record(ctx, Outcome{CycleID: "c1", StartedAt: time.Now(), Status: StatusDisplayed, Manual: true})

	outcomes, err := ListRecent(ctx, cfg.DBPath, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(outcomes) != 1 || !outcomes[0].Manual {
		t.Fatalf("manual flag lost: %+v", outcomes)
	}
}

func TestJSONLSinkAppendsOneLinePerOutcome(t *testing.T) {
	m, cfg := testManager(t, true)
	ctx := context.Background()
	m.Record(ctx, Outcome{CycleID: "c1", StartedAt: time.Now(), Status: StatusDisplayed})
	m.Record(ctx, Outcome{CycleID: "c2", StartedAt: time.Now(), Status: StatusSkipped})

	f, err := os.Open(cfg.JSONLPath)
	if err != nil {
		t.Fatalf("open jsonl: %v", err)
	}
	defer f.Close()
	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
	}
	if lines != 2 {
		t.Fatalf("jsonl lines = %d, want 2", lines)
	}
}

func TestListRecentEmptyHistory(t *testing.T) {
	_, cfg := testManager(t, false)
	outcomes, err := ListRecent(context.Background(), cfg.DBPath, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(outcomes) != 0 {
		t.Fatalf("expected empty history, got %d rows", len(outcomes))
	}
}
