package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Options describes logger construction parameters.
type Options struct {
	Level string
	// Format picks the console rendering: "console" (default) or "json".
	Format      string
	Development bool
	// Console receives the primary output; nil means stdout.
	Console io.Writer
	// RunFile, when set, receives a JSON copy of every record regardless of
	// Format. Parent directories are created.
	RunFile string
}

// New builds the habari logger. Debug level or Development mode adds
// source locations.
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(opts.Level))
	addSource := opts.Development || level.Level() <= slog.LevelDebug

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	var handler slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		handler = newPrettyHandler(console, level, addSource)
	case "json":
		handler = newJSONHandler(console, level, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
	logger := slog.New(handler)

	if path := strings.TrimSpace(opts.RunFile); path != "" {
		file, err := openRunFile(path)
		if err != nil {
			return nil, err
		}
		logger = Mirror(logger, newJSONHandler(file, level, addSource))
	}
	return logger, nil
}

// ParseLevel maps a config level name to slog; unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openRunFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}
	return file, nil
}

// newJSONHandler writes the run-log line format read back by the logs
// package: ts in UTC RFC3339, lowercase level, source as file:line.
func newJSONHandler(w io.Writer, level *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				if attr.Value.Kind() == slog.KindTime {
					return slog.String("ts", attr.Value.Time().UTC().Format(time.RFC3339))
				}
				attr.Key = "ts"
			case slog.LevelKey:
				return slog.String(slog.LevelKey, strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					return slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	})
}
