package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"habari/internal/services"
	"habari/internal/toolexec"
)

// Result is the subset of "ffprobe -show_format -show_streams" JSON habari
// reads.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

type Stream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Duration  string `json:"duration"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type Format struct {
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Prober runs ffprobe through a toolexec.Runner.
type Prober struct {
	runner toolexec.Runner
	binary string
}

// New returns a Prober using binary, defaulting to "ffprobe".
func New(runner toolexec.Runner, binary string) *Prober {
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	return &Prober{runner: runner, binary: binary}
}

// Args returns the argument list used to inspect path.
func Args(path string) []string {
	return []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
}

// Inspect runs ffprobe on path and decodes its JSON report.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	if path = strings.TrimSpace(path); path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	res, err := p.runner.Run(ctx, p.binary, Args(path))
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, res.StderrTail(3))
	}
	var result Result
	if err := json.Unmarshal(res.Stdout, &result); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "ffprobe", "parse", "invalid json output", err)
	}
	return result, nil
}

// Duration returns the playback length of path. A missing or non-positive
// length is a validation error.
func (p *Prober) Duration(ctx context.Context, path string) (time.Duration, error) {
	result, err := p.Inspect(ctx, path)
	if err != nil {
		return 0, err
	}
	length, ok := result.Length()
	if !ok {
		return 0, services.Wrap(services.ErrValidation, "ffprobe", "duration", fmt.Sprintf("no usable duration for %s", path), nil)
	}
	return length, nil
}

// Length prefers the container duration and falls back to the longest
// stream. ok is false when nothing parseable and positive was reported.
func (r Result) Length() (time.Duration, bool) {
	seconds, ok := parseSeconds(r.Format.Duration)
	if !ok {
		for _, s := range r.Streams {
			if d, valid := parseSeconds(s.Duration); valid && d > seconds {
				seconds, ok = d, true
			}
		}
	}
	if !ok || seconds <= 0 {
		return 0, false
	}
	return time.Duration(math.Round(seconds*1e6)) * time.Microsecond, true
}

// Has reports whether a stream of codec type kind ("audio", "video") exists.
func (r Result) Has(kind string) bool {
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, kind) {
			return true
		}
	}
	return false
}

// FrameSize returns the dimensions of the first video stream.
func (r Result) FrameSize() (width, height int) {
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, "video") {
			return s.Width, s.Height
		}
	}
	return 0, 0
}

func parseSeconds(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" || value == "N/A" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
