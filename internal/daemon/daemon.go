package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"habari/internal/config"
	"habari/internal/history"
	"habari/internal/logging"
	"habari/internal/pipeline"
	"habari/internal/staging"
)

const (
	lockFileName = "habari.lock"
	pidFileName  = "habari.pid"
)

// ErrAlreadyRunning reports that another process holds the daemon lock.
var ErrAlreadyRunning = errors.New("another habari instance is already running")

// Loop is the broadcast loop driven by the daemon.
type Loop interface {
	Run(ctx context.Context, opts pipeline.RunOptions) error
}

// Sweeper repairs state left by a previous run.
type Sweeper interface {
	MarkInterrupted(ctx context.Context) (int64, error)
}

// Daemon runs the broadcast loop under an exclusive lock.
type Daemon struct {
	cfg     *config.Config
	loop    Loop
	sweeper Sweeper
	logger  *slog.Logger

	lockPath string
	pidPath  string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
	err     error
}

// Status describes daemon runtime state.
type Status struct {
	Running      bool
	LockFilePath string
	PIDFilePath  string
	HistoryPath  string
}

// SweepResult summarizes the startup sweep.
type SweepResult struct {
	Cleanup     staging.CleanResult
	Interrupted int64
}

// New constructs a daemon. sweeper may be nil when history is disabled.
func New(cfg *config.Config, loop Loop, sweeper Sweeper, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || loop == nil {
		return nil, errors.New("daemon requires config and broadcast loop")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := LockPath(cfg)
	return &Daemon{
		cfg:      cfg,
		loop:     loop,
		sweeper:  sweeper,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		pidPath:  PIDPath(cfg),
		lock:     flock.New(lockPath),
	}, nil
}

// LockPath returns the lock file guarding the state directory.
func LockPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.StateDir, lockFileName)
}

// PIDPath returns the file holding the running daemon's process id.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.StateDir, pidFileName)
}

// Start acquires the lock, sweeps stale state, and launches the loop in the
// background. Wait reports its outcome.
func (d *Daemon) Start(ctx context.Context, opts pipeline.RunOptions) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	if err := writePIDFile(d.pidPath); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("write pid file: %w", err)
	}

	d.Sweep(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running.Store(true)
	d.logger.Info("habari daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.Int("pid", os.Getpid()),
	)

	go func() {
		defer close(d.done)
		err := d.loop.Run(runCtx, opts)
		d.mu.Lock()
		d.err = err
		d.mu.Unlock()
		if err != nil {
			logging.ErrorWithContext(d.logger, "broadcast loop failed", "daemon_loop_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the configuration and restart habari"),
			)
		}
	}()
	return nil
}

// Sweep removes transient files from the work directory and closes history
// rows left running by a crashed process.
func (d *Daemon) Sweep(ctx context.Context) SweepResult {
	var result SweepResult
	result.Cleanup = staging.CleanCycle(d.cfg.Paths.WorkDir, d.cfg.ManifestPath(), d.logger)
	if d.sweeper != nil {
		n, err := d.sweeper.MarkInterrupted(ctx)
		if err != nil {
			logging.WarnWithContext(d.logger, "history sweep failed", "startup_sweep_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "previous cycles may still show as running"),
			)
		}
		result.Interrupted = n
	}
	if len(result.Cleanup.Removed) > 0 || result.Interrupted > 0 {
		d.logger.Info("startup sweep completed",
			logging.String(logging.FieldEventType, "startup_sweep"),
			logging.Int("files_removed", len(result.Cleanup.Removed)),
			logging.Int64("bytes_removed", result.Cleanup.Bytes),
			logging.Int64("cycles_interrupted", result.Interrupted),
		)
	}
	return result
}

// Wait blocks until the loop returns and reports its error.
func (d *Daemon) Wait() error {
	if d.done == nil {
		return nil
	}
	<-d.done
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Done is closed when the loop exits. It is nil before Start.
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

// Stop cancels the loop, waits for the current cycle to wind down, and
// releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	<-d.done
	if err := os.Remove(d.pidPath); err != nil && !os.IsNotExist(err) {
		d.logger.Warn("failed to remove pid file", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("habari daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		LockFilePath: d.lockPath,
		PIDFilePath:  d.pidPath,
		HistoryPath:  filepath.Join(d.cfg.Paths.StateDir, history.FileName),
	}
}

// ReadPID returns the pid recorded by a running daemon, or 0 when none is
// recorded.
func ReadPID(cfg *config.Config) (int, error) {
	data, err := os.ReadFile(PIDPath(cfg))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file: %w", err)
	}
	return pid, nil
}

// IsLocked reports whether some process currently holds the daemon lock.
func IsLocked(cfg *config.Config) (bool, error) {
	probe := flock.New(LockPath(cfg))
	ok, err := probe.TryLock()
	if err != nil {
		return false, err
	}
	if ok {
		_ = probe.Unlock()
		return false, nil
	}
	return true, nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
