// Package logging assembles structured slog loggers and formatting helpers used
// across habari.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code automatically
// tags log lines with cycle IDs, segment indexes, and stage names. Daemon runs
// mirror every record into a per-run JSON file, and PruneRunLogs drops those
// files once they age past logging.retention_days.
package logging
