package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// RunLogPattern matches the per-run JSON logs written under log_dir.
const RunLogPattern = "habari-*.log"

// PruneRunLogs deletes run logs in dir last modified more than retentionDays
// ago and returns the removed paths in name order. Paths listed in keep are
// never removed. retentionDays <= 0 disables pruning.
func PruneRunLogs(logger *slog.Logger, dir string, retentionDays int, keep ...string) []string {
	if retentionDays <= 0 || dir == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, RunLogPattern))
	if err != nil || len(matches) == 0 {
		return nil
	}
	sort.Strings(matches)

	protected := make(map[string]bool, len(keep))
	for _, path := range keep {
		protected[filepath.Clean(path)] = true
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	var removed []string
	for _, path := range matches {
		if protected[filepath.Clean(path)] {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "run log prune failed", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check ownership of log_dir"),
				String(FieldImpact, "old run log stays on disk"),
			)
			continue
		}
		removed = append(removed, path)
	}
	if len(removed) > 0 && logger != nil {
		logger.Debug("old run logs pruned",
			String(FieldEventType, "log_pruned"),
			Int("removed", len(removed)),
			Int("retention_days", retentionDays),
		)
	}
	return removed
}
