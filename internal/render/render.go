// Package render composes a still image and a narration track into a video
// segment whose length is driven by the audio.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"time"

	"habari/internal/config"
	"habari/internal/fileutil"
	"habari/internal/logging"
	"habari/internal/media/ffprobe"
	"habari/internal/services"
	"habari/internal/toolexec"
)

// driftTolerance is how far the rendered length may stray from the audio
// before a warning is logged.
const driftTolerance = 500 * time.Millisecond

// Segment is a rendered clip ready for the playlist.
type Segment struct {
	Index    int
	Path     string
	Duration time.Duration
	Bytes    int64
}

// Renderer runs ffprobe and ffmpeg for one segment at a time.
type Renderer struct {
	runner       toolexec.Runner
	prober       *ffprobe.Prober
	ffmpeg       string
	dir          string
	width        int
	height       int
	preset       string
	audioBitrate string
	sampleRate   int
	blur         string
	minBytes     int64
	logger       *slog.Logger
}

// New builds a Renderer from the render section of cfg.
func New(cfg *config.Config, runner toolexec.Runner, prober *ffprobe.Prober, logger *slog.Logger) *Renderer {
	return &Renderer{
		runner:       runner,
		prober:       prober,
		ffmpeg:       cfg.FFmpegBinary(),
		dir:          cfg.Paths.WorkDir,
		width:        cfg.Render.Width,
		height:       cfg.Render.Height,
		preset:       cfg.Render.Preset,
		audioBitrate: cfg.Render.AudioBitrate,
		sampleRate:   cfg.Render.SampleRate,
		blur:         cfg.Render.BlurRadius,
		minBytes:     cfg.Render.MinBytes,
		logger:       logging.NewComponentLogger(logger, "render"),
	}
}

// OutputPath returns segment_<index>.mp4 in the work directory.
func (r *Renderer) OutputPath(index int) string {
	return filepath.Join(r.dir, fmt.Sprintf("segment_%d.mp4", index))
}

// FilterGraph returns the blurred-fill composition: the image scaled to cover
// the frame, cropped and blurred as background, with an unblurred copy scaled
// to fit and centered on top.
func (r *Renderer) FilterGraph() string {
	w, h := r.width, r.height
	return fmt.Sprintf(
		"[0:v]split=2[src][dup];"+
			"[src]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,boxblur=%s[bg];"+
			"[dup]scale=%d:%d:force_original_aspect_ratio=decrease[fg];"+
			"[bg][fg]overlay=(W-w)/2:(H-h)/2,format=yuv420p[v]",
		w, h, w, h, r.blur, w, h)
}

// Args returns the ffmpeg argument list for one segment of the given duration.
func (r *Renderer) Args(image, audio string, duration time.Duration, output string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-loop", "1", "-i", image,
		"-i", audio,
		"-t", FormatSeconds(duration),
		"-filter_complex", r.FilterGraph(),
		"-map", "[v]", "-map", "1:a",
		"-pix_fmt", "yuv420p",
		"-c:v", "libx264", "-preset", r.preset,
		"-c:a", "aac", "-b:a", r.audioBitrate, "-ar", strconv.Itoa(r.sampleRate),
		"-shortest",
		output,
	}
}

// Render probes audio for its duration and encodes image plus audio into a
// segment of exactly that length. It returns an error, never a partial file,
// when the encode fails or the output is not larger than the minimum size.
func (r *Renderer) Render(ctx context.Context, index int, image, audio string) (Segment, error) {
	logger := logging.WithContext(ctx, r.logger)

	duration, err := r.prober.Duration(ctx, audio)
	if err != nil {
		return Segment{}, services.Wrap(services.ErrExternalTool, "render", "probe audio", audio, err)
	}

	output := r.OutputPath(index)
	if err := fileutil.RemoveIfExists(output); err != nil {
		return Segment{}, services.Wrap(services.ErrTransient, "render", "remove stale segment", output, err)
	}

	started := time.Now()
	res, err := r.runner.Run(ctx, r.ffmpeg, r.Args(image, audio, duration, output))
	if err != nil {
		_ = fileutil.RemoveIfExists(output)
		logging.WarnWithContext(logger, "segment encode failed", "render_failed",
			logging.Int("exit_code", res.ExitCode),
			logging.String("stderr_tail", res.StderrTail(8)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the ffmpeg stderr tail; the image may be corrupt"),
			logging.String(logging.FieldImpact, "segment dropped from this cycle's playlist"),
		)
		return Segment{}, services.Wrap(services.ErrExternalTool, "render", "encode", fmt.Sprintf("segment %d", index), err)
	}

	size, ok := fileutil.SizeAbove(output, r.minBytes)
	if !ok {
		_ = fileutil.RemoveIfExists(output)
		return Segment{}, services.Wrap(services.ErrValidation, "render", "verify",
			fmt.Sprintf("segment %d is %d bytes, need more than %d", index, size, r.minBytes), nil)
	}

	r.checkOutput(ctx, logger, output, duration)
	logger.Info("segment rendered",
		logging.String(logging.FieldEventType, "segment_rendered"),
		logging.String("path", output),
		logging.Duration("duration", duration),
		logging.Int64("bytes", size),
		logging.Duration("elapsed", time.Since(started)),
	)
	return Segment{Index: index, Path: output, Duration: duration, Bytes: size}, nil
}

// checkOutput probes the rendered file and warns when it is shorter or
// longer than the narration, lacks a stream, or has the wrong frame size. A
// failed probe is logged at debug level only.
func (r *Renderer) checkOutput(ctx context.Context, logger *slog.Logger, output string, want time.Duration) {
	report, err := r.prober.Inspect(ctx, output)
	if err != nil {
		logger.Debug("rendered segment probe failed", logging.Error(err))
		return
	}
	if got, ok := report.Length(); ok {
		if drift := time.Duration(math.Abs(float64(got - want))); drift > driftTolerance {
			logging.WarnWithContext(logger, "rendered length differs from narration", "render_drift",
				logging.Duration("audio", want),
				logging.Duration("video", got),
				logging.String(logging.FieldErrorHint, "check the source image decodes as a single still frame"),
				logging.String(logging.FieldImpact, "narration may be clipped or padded"),
			)
		}
	}
	if len(report.Streams) == 0 {
		return
	}
	if !report.Has("audio") || !report.Has("video") {
		logging.WarnWithContext(logger, "rendered segment is missing a stream", "render_streams",
			logging.Bool("audio", report.Has("audio")),
			logging.Bool("video", report.Has("video")),
			logging.String(logging.FieldImpact, "viewers may see a silent or blank segment"),
		)
	}
	if w, h := report.FrameSize(); w > 0 && (w != r.width || h != r.height) {
		logging.WarnWithContext(logger, "rendered frame size differs from config", "render_frame_size",
			logging.String("got", fmt.Sprintf("%dx%d", w, h)),
			logging.String("want", fmt.Sprintf("%dx%d", r.width, r.height)),
			logging.String(logging.FieldImpact, "the stream encoder rescales this segment"),
		)
	}
}

// FormatSeconds renders d for ffmpeg's -t option with millisecond precision.
func FormatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
