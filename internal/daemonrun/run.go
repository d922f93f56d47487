package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"habari/internal/config"
	"habari/internal/daemon"
	"habari/internal/deps"
	"habari/internal/history"
	"habari/internal/logging"
	"habari/internal/notifications"
	"habari/internal/pipeline"
	"habari/internal/toolexec"
)

// CurrentLogName is the stable pointer to the active run log inside log_dir.
const CurrentLogName = "habari.log"

// Options configures broadcaster process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Once        bool
	MaxCycles   int
}

// Run starts the broadcaster and blocks until it is interrupted or the loop
// stops on its own. A missing stream key fails before any logger, store, or
// subprocess is created.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if err := pipeline.CheckPreconditions(cfg); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("habari-%s.log", runID))
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		Development: opts.Development,
		RunFile:     logPath,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", CurrentLogName, err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath)
	logDependencySnapshot(signalCtx, logger, cfg)

	store, err := history.Open(cfg)
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return err
	}
	defer store.Close()
	pruneHistory(signalCtx, logger, store, cfg.Logging.RetentionDays)

	notifier := notifications.NewService(cfg)
	orchestrator, err := pipeline.Build(cfg, toolexec.NewExecRunner(), logger,
		pipeline.WithRecorder(store),
		pipeline.WithNotifier(notifier),
	)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	d, err := daemon.New(cfg, orchestrator, store, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx, pipeline.RunOptions{Once: opts.Once, MaxCycles: opts.MaxCycles}); err != nil {
		return err
	}

	select {
	case <-signalCtx.Done():
		logger.Info("habari shutting down", logging.String(logging.FieldEventType, "shutdown_requested"))
	case <-d.Done():
	}
	d.Stop()
	return d.Wait()
}

func pruneHistory(ctx context.Context, logger *slog.Logger, store *history.Store, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	removed, err := store.Prune(ctx, time.Now().AddDate(0, 0, -retentionDays))
	if err != nil {
		logging.WarnWithContext(logger, "history prune failed", "history_prune_failed", logging.Error(err))
		return
	}
	if removed > 0 {
		logger.Info("history pruned",
			logging.String(logging.FieldEventType, "history_pruned"),
			logging.Int64("cycles_removed", removed),
		)
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, CurrentLogName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("stream_key_present", cfg.HasStreamKey()),
		logging.String("translate_provider", cfg.Translate.Provider),
		logging.Bool("ntfy_configured", cfg.Notifications.NtfyTopic != ""),
	}
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	deps.ProbeVersions(ctx, toolexec.WithTimeout(toolexec.NewExecRunner(), 10*time.Second), statuses)
	for _, status := range statuses {
		attrs = append(attrs,
			logging.Bool(status.Name+"_available", status.Available),
			logging.String(status.Name+"_binary", status.Command),
		)
		if status.Version != "" {
			attrs = append(attrs, logging.String(status.Name+"_version", status.Version))
		}
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)

	for _, m := range deps.Missing(statuses) {
		logging.WarnWithContext(logger, "required binary missing", "dependency_missing",
			logging.String("dependency", m.Name),
			logging.String("detail", m.Detail),
			logging.String(logging.FieldErrorHint, "install it or set the [tools] path in the config"),
			logging.String(logging.FieldImpact, "segments that need it will be dropped"),
		)
	}
}
