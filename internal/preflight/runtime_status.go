package preflight

import (
	"context"
	"strings"

	"habari/internal/config"
	"habari/internal/staging"
)

// CheckIngestFromConfig evaluates the ingest endpoint for status output. The
// probe is skipped when no stream key is configured.
func CheckIngestFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Ingest endpoint"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.HasStreamKey() {
		return Result{Name: name, Detail: "Skipped (no stream key)"}
	}
	return CheckIngest(ctx, cfg.Stream.IngestURL)
}

// CheckNotificationsFromConfig reports whether ntfy delivery is configured.
func CheckNotificationsFromConfig(cfg *config.Config) Result {
	const name = "Notifications"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: "ntfy topic configured"}
}

// WorkDirProbe summarizes leftover transient media in the work directory.
type WorkDirProbe struct {
	Files int
	Bytes int64
	Err   error
}

// ProbeWorkDir counts transient files that a cleanup pass would remove.
func ProbeWorkDir(cfg *config.Config) WorkDirProbe {
	if cfg == nil {
		return WorkDirProbe{}
	}
	files, err := staging.ListTransient(cfg.Paths.WorkDir)
	probe := WorkDirProbe{Files: len(files), Err: err}
	for _, f := range files {
		probe.Bytes += f.Size
	}
	return probe
}
