// Package publish pushes a concat manifest to the live ingestion endpoint with
// a real-time ffmpeg encode.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"habari/internal/config"
	"habari/internal/logging"
	"habari/internal/services"
	"habari/internal/toolexec"
)

// Outcome describes a finished push.
type Outcome struct {
	ExitCode int
	Elapsed  time.Duration
	Timeout  time.Duration
}

// Publisher runs one blocking push per cycle.
type Publisher struct {
	runner  toolexec.Runner
	ffmpeg  string
	ingest  string
	key     string
	stream  config.Stream
	timeout int
	slack   time.Duration
	logger  *slog.Logger
}

// New builds a Publisher. A missing stream key is a configuration error.
func New(cfg *config.Config, runner toolexec.Runner, logger *slog.Logger) (*Publisher, error) {
	if !cfg.HasStreamKey() {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "init",
			"stream key missing; set "+cfg.Stream.KeyEnv, nil)
	}
	return &Publisher{
		runner:  runner,
		ffmpeg:  cfg.FFmpegBinary(),
		ingest:  cfg.Stream.IngestURL,
		key:     strings.TrimSpace(cfg.Stream.Key),
		stream:  cfg.Stream,
		timeout: cfg.Stream.Timeout,
		slack:   time.Duration(cfg.Stream.TimeoutSlack) * time.Second,
		logger:  logging.NewComponentLogger(logger, "publish"),
	}, nil
}

// Args returns the push invocation for manifest.
func (p *Publisher) Args(manifest string) []string {
	return []string{
		"-hide_banner", "-loglevel", "warning",
		"-re", "-f", "concat", "-safe", "0", "-i", manifest,
		"-vcodec", "libx264", "-preset", p.stream.Preset,
		"-maxrate", p.stream.MaxRate, "-bufsize", p.stream.BufSize,
		"-pix_fmt", "yuv420p", "-g", strconv.Itoa(p.stream.KeyframeGOP),
		"-c:a", "aac", "-b:a", p.stream.AudioBitrate, "-ar", strconv.Itoa(p.stream.SampleRate),
		"-f", "flv", p.ingest + p.key,
	}
}

// Timeout returns the bound applied to a push of a playlist lasting
// playlist. Zero means unbounded.
func (p *Publisher) Timeout(playlist time.Duration) time.Duration {
	switch {
	case p.timeout < 0:
		return 0
	case p.timeout > 0:
		return time.Duration(p.timeout) * time.Second
	default:
		return playlist + p.slack
	}
}

// Publish blocks until the push exits, the timeout fires, or ctx is done.
// When it returns, the ffmpeg child has exited.
func (p *Publisher) Publish(ctx context.Context, manifest string, playlist time.Duration) (Outcome, error) {
	logger := logging.WithContext(ctx, p.logger)
	timeout := p.Timeout(playlist)
	logger.Info("stream push started",
		logging.String(logging.FieldEventType, "publish_started"),
		logging.String("target", p.RedactedTarget()),
		logging.Duration("playlist_duration", playlist),
		logging.Duration("timeout", timeout),
	)

	res, err := toolexec.WithTimeout(p.runner, timeout).Run(ctx, p.ffmpeg, p.Args(manifest))
	outcome := Outcome{ExitCode: res.ExitCode, Elapsed: res.Elapsed, Timeout: timeout}
	if err != nil {
		// Redact the key in case ffmpeg echoed the target URL.
		tail := strings.ReplaceAll(res.StderrTail(8), p.key, "****")
		logging.WarnWithContext(logger, "stream push ended with error", "publish_failed",
			logging.Int("exit_code", res.ExitCode),
			logging.Duration("elapsed", res.Elapsed),
			logging.String("stderr_tail", tail),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify the stream key and ingest endpoint reachability"),
			logging.String(logging.FieldImpact, "viewers saw a partial or no broadcast this cycle"),
		)
		return outcome, fmt.Errorf("publish: push: %w", err)
	}
	logger.Info("stream push finished",
		logging.String(logging.FieldEventType, "publish_finished"),
		logging.Duration("elapsed", res.Elapsed),
	)
	return outcome, nil
}

// RedactedTarget returns the ingest address with the key masked.
func (p *Publisher) RedactedTarget() string {
	return p.ingest + "****"
}
