// Package daemonctl inspects and controls a habari broadcaster running as a
// separate process, using the lock and pid files it keeps in state_dir.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"habari/internal/config"
	"habari/internal/daemon"
	"habari/internal/history"
	"habari/internal/preflight"
)

// ErrDaemonNotRunning indicates no process holds the daemon lock.
var ErrDaemonNotRunning = errors.New("habari is not running")

// LaunchOptions controls background launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

// Launch starts a detached `habari run` process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}
	args := []string{"run"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}
	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch habari: %w", err)
	}
	return proc.Process.Release()
}

// WaitForStart polls until the daemon lock is held or timeout elapses.
func WaitForStart(cfg *config.Config, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if running, _, err := ProcessInfo(cfg); err == nil && running {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("habari did not start within %s", timeout)
}

// ProcessInfo reports whether a broadcaster holds the lock and its pid when
// recorded.
func ProcessInfo(cfg *config.Config) (bool, int, error) {
	locked, err := daemon.IsLocked(cfg)
	if err != nil {
		return false, 0, fmt.Errorf("probe daemon lock: %w", err)
	}
	if !locked {
		return false, 0, nil
	}
	pid, err := daemon.ReadPID(cfg)
	if err != nil {
		return true, 0, err
	}
	return true, pid, nil
}

// StopResult captures daemon stop outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Stop sends SIGTERM to the running broadcaster and escalates to SIGKILL when
// it has not released its lock after gracePeriod.
func Stop(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	running, pid, err := ProcessInfo(cfg)
	if err != nil {
		return StopResult{}, err
	}
	if !running {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid <= 0 {
		return StopResult{}, fmt.Errorf("unable to determine habari pid (pid file: %s)", daemon.PIDPath(cfg))
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return StopResult{}, fmt.Errorf("locate habari process %d: %w", pid, err)
	}
	result := StopResult{PID: pid}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return result, fmt.Errorf("signal habari process %d: %w", pid, err)
	}
	if waitForRelease(cfg, gracePeriod) {
		return result, nil
	}
	if err := proc.Kill(); err != nil {
		return result, fmt.Errorf("kill habari process %d: %w", pid, err)
	}
	_ = os.Remove(daemon.PIDPath(cfg))
	result.ForcedKill = true
	return result, nil
}

func waitForRelease(cfg *config.Config, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if locked, err := daemon.IsLocked(cfg); err == nil && !locked {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// Snapshot is the offline view rendered by `habari status`.
type Snapshot struct {
	Running bool
	PID     int
	Checks  []preflight.Result
	Ingest  preflight.Result
	Notify  preflight.Result
	WorkDir preflight.WorkDirProbe
	Summary history.Summary
	Last    *history.Cycle
	// HistoryErr is set when the history store could not be read.
	HistoryErr error
}

// BuildStatusSnapshot collects process, readiness, and history state.
func BuildStatusSnapshot(ctx context.Context, cfg *config.Config) (*Snapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snap := &Snapshot{}
	running, pid, err := ProcessInfo(cfg)
	if err == nil {
		snap.Running, snap.PID = running, pid
	}
	snap.Checks = preflight.RunAll(ctx, cfg)
	snap.Ingest = preflight.CheckIngestFromConfig(ctx, cfg)
	snap.Notify = preflight.CheckNotificationsFromConfig(cfg)
	snap.WorkDir = preflight.ProbeWorkDir(cfg)

	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	store, err := history.Open(cfg)
	if err != nil {
		snap.HistoryErr = err
		return snap, nil
	}
	defer store.Close()
	if snap.Summary, err = store.Summarize(queryCtx); err != nil {
		snap.HistoryErr = err
		return snap, nil
	}
	recent, err := store.RecentCycles(queryCtx, 1)
	if err != nil {
		snap.HistoryErr = err
		return snap, nil
	}
	if len(recent) > 0 {
		snap.Last = &recent[0]
	}
	return snap, nil
}
