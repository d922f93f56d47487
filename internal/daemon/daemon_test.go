package daemon_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"habari/internal/daemon"
	"habari/internal/history"
	"habari/internal/logging"
	"habari/internal/pipeline"
	"habari/internal/services"
	"habari/internal/testsupport"
)

type blockingLoop struct {
	started chan pipeline.RunOptions
}

func (l *blockingLoop) Run(ctx context.Context, opts pipeline.RunOptions) error {
	l.started <- opts
	<-ctx.Done()
	return nil
}

type failingLoop struct{ err error }

func (l failingLoop) Run(context.Context, pipeline.RunOptions) error { return l.err }

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	loop := &blockingLoop{started: make(chan pipeline.RunOptions, 1)}
	d, err := daemon.New(cfg, loop, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx := context.Background()
	if err := d.Start(ctx, pipeline.RunOptions{MaxCycles: 3}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	select {
	case opts := <-loop.started:
		if opts.MaxCycles != 3 {
			t.Fatalf("run options not forwarded: %+v", opts)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not start")
	}

	if !d.Status().Running {
		t.Fatal("expected daemon to report running")
	}
	if err := d.Start(ctx, pipeline.RunOptions{}); err == nil {
		t.Fatal("expected second start to fail")
	}
	pid, err := daemon.ReadPID(cfg)
	if err != nil || pid != os.Getpid() {
		t.Fatalf("unexpected pid %d err %v", pid, err)
	}
	locked, err := daemon.IsLocked(cfg)
	if err != nil || !locked {
		t.Fatalf("expected lock to be held, locked=%v err=%v", locked, err)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	if err := d.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if pid, _ := daemon.ReadPID(cfg); pid != 0 {
		t.Fatalf("pid file should be removed, got %d", pid)
	}
	if locked, _ := daemon.IsLocked(cfg); locked {
		t.Fatal("lock should be released after Stop")
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := daemon.New(cfg, &blockingLoop{started: make(chan pipeline.RunOptions, 1)}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Start(context.Background(), pipeline.RunOptions{}); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	t.Cleanup(first.Stop)

	second, err := daemon.New(cfg, &blockingLoop{started: make(chan pipeline.RunOptions, 1)}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Start(context.Background(), pipeline.RunOptions{}); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestWaitReturnsLoopError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	want := services.Wrap(services.ErrConfiguration, "pipeline", "init", "stream key missing", nil)
	d, err := daemon.New(cfg, failingLoop{err: want}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background(), pipeline.RunOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)
	if err := d.Wait(); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestStartupSweepCleansWorkDirAndHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.SeedWorkDir(t, cfg, map[string]int64{
		"segment_0.mp4": 4096,
		"audio_0.mp3":   512,
		"image_0.jpg":   256,
		"playlist.txt":  32,
	})
	store := testsupport.MustOpenHistory(t, cfg)
	if err := store.BeginCycle(context.Background(), "crashed", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("BeginCycle: %v", err)
	}

	d, err := daemon.New(cfg, failingLoop{}, store, nil)
	if err != nil {
		t.Fatal(err)
	}
	result := d.Sweep(context.Background())
	if len(result.Cleanup.Removed) != 4 || result.Interrupted != 1 {
		t.Fatalf("unexpected sweep result: %+v", result)
	}
	entries, err := os.ReadDir(cfg.Paths.WorkDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("work dir not empty after sweep: %v", entries)
	}
	cycle, err := store.GetCycle(context.Background(), "crashed")
	if err != nil || cycle == nil || cycle.Status != history.StatusInterrupted {
		t.Fatalf("expected interrupted cycle, got %+v %v", cycle, err)
	}
}
