// Package staging sweeps the transient media a broadcast cycle leaves in the
// work directory.
package staging

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"habari/internal/logging"
)

// TransientPatterns lists the file globs produced by a cycle.
var TransientPatterns = []string{"*.mp4", "*.mp3", "*.jpg", "*.part", "*.img", "*.tmp"}

// CleanResult contains the outcome of a cleanup operation.
type CleanResult struct {
	Removed []string
	Bytes   int64
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanCycle removes transient media and the manifest from workDir. Directories
// and files outside TransientPatterns are left alone. Missing files are not errors.
func CleanCycle(workDir, manifest string, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	targets, err := matchTransient(workDir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: workDir, Error: err})
		return result
	}
	if manifest = strings.TrimSpace(manifest); manifest != "" {
		targets = append(targets, manifest)
	}

	for _, path := range targets {
		info, err := os.Lstat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			}
			continue
		}
		if info.IsDir() {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logger.Warn("failed to remove transient file",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		result.Bytes += info.Size()
	}

	logger.Debug("work directory swept",
		logging.String(logging.FieldEventType, "cleanup_completed"),
		logging.Int("removed", len(result.Removed)),
		logging.Int64("bytes", result.Bytes),
		logging.Int("errors", len(result.Errors)),
	)
	return result
}

func matchTransient(dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var matches []string
	for _, pattern := range TransientPatterns {
		found, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		matches = append(matches, found...)
	}
	sort.Strings(matches)
	return matches, nil
}

// FileInfo describes one leftover transient file.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// ListTransient returns the transient files currently in workDir.
func ListTransient(workDir string) ([]FileInfo, error) {
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return nil, nil
	}
	matches, err := matchTransient(workDir)
	if err != nil {
		return nil, err
	}
	files := make([]FileInfo, 0, len(matches))
	for _, path := range matches {
		info, err := os.Lstat(path)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, FileInfo{Name: info.Name(), Path: path, Size: info.Size()})
	}
	return files, nil
}
