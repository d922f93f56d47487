package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"habari/internal/config"
	"habari/internal/fileutil"
	"habari/internal/logging"
	"habari/internal/services"
	"habari/internal/textutil"
)

// ErrAllEnginesFailed reports that no engine produced usable audio.
var ErrAllEnginesFailed = errors.New("all synthesis engines failed")

// Asset is a synthesized narration file.
type Asset struct {
	Path   string
	Engine string
	Bytes  int64
}

// Synthesizer runs the engine chain for one segment at a time.
type Synthesizer struct {
	engines  []Engine
	dir      string
	minBytes int64
	logger   *slog.Logger
}

// NewSynthesizer writes audio into cfg.Paths.WorkDir.
func NewSynthesizer(cfg *config.Config, engines []Engine, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		engines:  engines,
		dir:      cfg.Paths.WorkDir,
		minBytes: cfg.TTS.MinBytes,
		logger:   logging.NewComponentLogger(logger, "tts"),
	}
}

// FinalPath returns audio_<index>.mp3 in the work directory.
func (s *Synthesizer) FinalPath(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("audio_%d.mp3", index))
}

func (s *Synthesizer) attemptPath(index, attempt int) string {
	return filepath.Join(s.dir, fmt.Sprintf("audio_%d.%d.part", index, attempt))
}

// Synthesize sanitizes text and tries each engine until one yields a file
// larger than the minimum size. The first success stops the chain.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, index int) (Asset, error) {
	clean := textutil.SanitizeNarration(text)
	if clean == "" {
		return Asset{}, services.Wrap(services.ErrValidation, "tts", "synthesize", "narration text is empty after sanitizing", nil)
	}

	final := s.FinalPath(index)
	if err := fileutil.RemoveIfExists(final); err != nil {
		return Asset{}, services.Wrap(services.ErrTransient, "tts", "synthesize", "remove stale audio", err)
	}

	errs := make([]error, 0, len(s.engines))
	for attempt, engine := range s.engines {
		if err := ctx.Err(); err != nil {
			return Asset{}, err
		}
		part := s.attemptPath(index, attempt+1)
		_ = fileutil.RemoveIfExists(part)

		engineCtx := services.WithEngine(ctx, engine.Name())
		attemptLogger := logging.WithContext(engineCtx, s.logger)
		started := time.Now()
		err := engine.Synthesize(engineCtx, clean, part)
		size, ok := fileutil.SizeAbove(part, s.minBytes)
		if err == nil && !ok {
			err = services.Wrap(services.ErrValidation, "tts", engine.Name(),
				fmt.Sprintf("output %d bytes, need more than %d", size, s.minBytes), nil)
		}
		if err != nil {
			_ = fileutil.RemoveIfExists(part)
			errs = append(errs, fmt.Errorf("%s: %w", engine.Name(), err))
			logging.WarnWithContext(attemptLogger, "speech engine failed; trying next", "tts_engine_failed",
				logging.Int("attempt", attempt+1),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the engine's binary or network access"),
				logging.String(logging.FieldImpact, "falls back to the next configured engine"),
			)
			continue
		}

		if err := os.Rename(part, final); err != nil {
			_ = fileutil.RemoveIfExists(part)
			return Asset{}, services.Wrap(services.ErrTransient, "tts", "synthesize", "promote audio", err)
		}
		attemptLogger.Info("narration synthesized",
			logging.String(logging.FieldEventType, "tts_synthesized"),
			logging.Int("attempt", attempt+1),
			logging.Int64("bytes", size),
			logging.Duration("elapsed", time.Since(started)),
		)
		return Asset{Path: final, Engine: engine.Name(), Bytes: size}, nil
	}
	if len(errs) == 0 {
		return Asset{}, ErrAllEnginesFailed
	}
	return Asset{}, fmt.Errorf("%w: %w", ErrAllEnginesFailed, errors.Join(errs...))
}
