package history_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"habari/internal/history"
	"habari/internal/testsupport"
)

func TestOpenCreatesSchemaInStateDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	want := filepath.Join(cfg.Paths.StateDir, history.FileName)
	if store.Path() != want {
		t.Fatalf("unexpected path %q", store.Path())
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("database not created: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = reopened.Close()
}

func TestCycleLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := store.BeginCycle(ctx, "cycle-a", started); err != nil {
		t.Fatalf("BeginCycle: %v", err)
	}
	segments := []history.Segment{
		{CycleID: "cycle-a", Index: 1, Title: "Habari", Status: history.SegmentRendered, Engine: "edge:sw-TZ-LughaNeural", Duration: 7250 * time.Millisecond, Bytes: 2048},
		{CycleID: "cycle-a", Index: 0, Title: "Kwanza", Status: history.SegmentDropped, Stage: "tts", Error: "all engines failed"},
	}
	for _, seg := range segments {
		if err := store.RecordSegment(ctx, seg); err != nil {
			t.Fatalf("RecordSegment: %v", err)
		}
	}
	finished := started.Add(3 * time.Minute)
	if err := store.FinishCycle(ctx, history.Cycle{
		ID: "cycle-a", Status: history.StatusPublished, FinishedAt: finished,
		Items: 2, Rendered: 1, Failed: 1, PlaylistDuration: 7250 * time.Millisecond,
	}); err != nil {
		t.Fatalf("FinishCycle: %v", err)
	}

	got, err := store.GetCycle(ctx, "cycle-a")
	if err != nil || got == nil {
		t.Fatalf("GetCycle: %v %v", got, err)
	}
	if got.Status != history.StatusPublished || got.Rendered != 1 || got.Failed != 1 {
		t.Fatalf("unexpected cycle: %+v", got)
	}
	if got.Elapsed() != 3*time.Minute {
		t.Fatalf("unexpected elapsed %v", got.Elapsed())
	}
	if got.PlaylistDuration != 7250*time.Millisecond {
		t.Fatalf("unexpected playlist duration %v", got.PlaylistDuration)
	}

	recorded, err := store.Segments(ctx, "cycle-a")
	if err != nil {
		t.Fatalf("Segments: %v", err)
	}
	if len(recorded) != 2 || recorded[0].Index != 0 || recorded[1].Index != 1 {
		t.Fatalf("expected index order, got %+v", recorded)
	}
	if recorded[0].Stage != "tts" || recorded[0].Error == "" {
		t.Fatalf("dropped segment lost its failure detail: %+v", recorded[0])
	}
	if recorded[1].Engine != "edge:sw-TZ-LughaNeural" || recorded[1].Bytes != 2048 {
		t.Fatalf("unexpected rendered segment: %+v", recorded[1])
	}
}

func TestRecordSegmentReplacesSameIndex(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if err := store.BeginCycle(ctx, "c", time.Now()); err != nil {
		t.Fatalf("BeginCycle: %v", err)
	}
	_ = store.RecordSegment(ctx, history.Segment{CycleID: "c", Index: 0, Status: history.SegmentDropped})
	_ = store.RecordSegment(ctx, history.Segment{CycleID: "c", Index: 0, Status: history.SegmentRendered})
	recorded, err := store.Segments(ctx, "c")
	if err != nil {
		t.Fatalf("Segments: %v", err)
	}
	if len(recorded) != 1 || recorded[0].Status != history.SegmentRendered {
		t.Fatalf("unexpected segments: %+v", recorded)
	}
}

func TestRecordSegmentRequiresKnownCycle(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	err := store.RecordSegment(context.Background(), history.Segment{CycleID: "missing", Status: history.SegmentRendered})
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestFinishUnknownCycleFails(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	err := store.FinishCycle(context.Background(), history.Cycle{ID: "ghost", Status: history.StatusEmpty})
	if err == nil {
		t.Fatal("expected error for unknown cycle")
	}
}

func TestRecentCyclesNewestFirstAndSummary(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	statuses := []history.Status{history.StatusPublished, history.StatusEmpty, history.StatusFailed}
	for i, status := range statuses {
		id := string(rune('a' + i))
		if err := store.BeginCycle(ctx, id, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("BeginCycle: %v", err)
		}
		if err := store.FinishCycle(ctx, history.Cycle{ID: id, Status: status}); err != nil {
			t.Fatalf("FinishCycle: %v", err)
		}
	}
	if err := store.BeginCycle(ctx, "d", base.Add(4*time.Hour)); err != nil {
		t.Fatalf("BeginCycle: %v", err)
	}

	recent, err := store.RecentCycles(ctx, 2)
	if err != nil {
		t.Fatalf("RecentCycles: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "d" || recent[1].ID != "c" {
		t.Fatalf("unexpected order: %+v", recent)
	}

	n, err := store.MarkInterrupted(ctx)
	if err != nil || n != 1 {
		t.Fatalf("MarkInterrupted = %d, %v", n, err)
	}
	summary, err := store.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	want := history.Summary{Total: 4, Published: 1, Empty: 1, Failed: 1, Interrupted: 1}
	if summary != want {
		t.Fatalf("summary = %+v, want %+v", summary, want)
	}

	pruned, err := store.Prune(ctx, base.Add(90*time.Minute))
	if err != nil || pruned != 2 {
		t.Fatalf("Prune = %d, %v", pruned, err)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dbPath := filepath.Join(cfg.Paths.StateDir, history.FileName)
	store, err := history.OpenPath(dbPath)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	_, err = history.Open(cfg)
	if !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
