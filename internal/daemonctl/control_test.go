package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"habari/internal/daemon"
	"habari/internal/daemonctl"
	"habari/internal/history"
	"habari/internal/pipeline"
	"habari/internal/testsupport"
)

type idleLoop struct{}

func (idleLoop) Run(ctx context.Context, _ pipeline.RunOptions) error {
	<-ctx.Done()
	return nil
}

func TestProcessInfoReflectsLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	running, pid, err := daemonctl.ProcessInfo(cfg)
	if err != nil || running || pid != 0 {
		t.Fatalf("expected idle state, got running=%v pid=%d err=%v", running, pid, err)
	}

	d, err := daemon.New(cfg, idleLoop{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background(), pipeline.RunOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	running, pid, err = daemonctl.ProcessInfo(cfg)
	if err != nil || !running || pid != os.Getpid() {
		t.Fatalf("expected running with pid %d, got running=%v pid=%d err=%v", os.Getpid(), running, pid, err)
	}
	if _, err := daemonctl.Stop(cfg, time.Second); err == nil {
		t.Fatal("Stop must refuse to signal the current process")
	}
}

func TestStopWhenNotRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemonctl.Stop(cfg, time.Second); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestBuildStatusSnapshotReadsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Stream.IngestURL = "rtmp://127.0.0.1:1/live2/"
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()
	started := time.Now().Add(-time.Minute)
	if err := store.BeginCycle(ctx, "c1", started); err != nil {
		t.Fatal(err)
	}
	if err := store.FinishCycle(ctx, history.Cycle{
		ID: "c1", Status: history.StatusPublished, StartedAt: started, FinishedAt: time.Now(), Items: 3, Rendered: 3,
	}); err != nil {
		t.Fatal(err)
	}
	testsupport.SeedWorkDir(t, cfg, map[string]int64{"segment_0.mp4": 10})

	snap, err := daemonctl.BuildStatusSnapshot(ctx, cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snap.Running {
		t.Fatal("nothing holds the lock")
	}
	if snap.HistoryErr != nil {
		t.Fatalf("history error: %v", snap.HistoryErr)
	}
	if snap.Summary.Total != 1 || snap.Summary.Published != 1 {
		t.Fatalf("unexpected summary: %+v", snap.Summary)
	}
	if snap.Last == nil || snap.Last.ID != "c1" {
		t.Fatalf("unexpected last cycle: %+v", snap.Last)
	}
	if snap.WorkDir.Files != 1 || snap.WorkDir.Bytes != 10 {
		t.Fatalf("unexpected work dir probe: %+v", snap.WorkDir)
	}
	if len(snap.Checks) == 0 {
		t.Fatal("expected readiness checks")
	}
}
