package pipeline

import (
	"log/slog"

	"habari/internal/config"
	"habari/internal/feed"
	"habari/internal/httpfetch"
	"habari/internal/imagefetch"
	"habari/internal/media/ffprobe"
	"habari/internal/publish"
	"habari/internal/render"
	"habari/internal/toolexec"
	"habari/internal/translate"
	"habari/internal/tts"
)

// BuildStages wires the production collaborators for cfg. Nothing here opens
// a connection or starts a process.
func BuildStages(cfg *config.Config, runner toolexec.Runner, logger *slog.Logger) (Stages, error) {
	client := httpfetch.New(cfg.Feeds.UserAgent)

	engines, err := tts.BuildEngines(cfg, runner, client)
	if err != nil {
		return Stages{}, err
	}
	publisher, err := publish.New(cfg, runner, logger)
	if err != nil {
		return Stages{}, err
	}
	provider := translate.NewProvider(cfg, translate.NewGoogleProvider(cfg, client))
	prober := ffprobe.New(runner, cfg.FFprobeBinary())

	return Stages{
		News:      feed.NewFetcher(cfg, client, logger),
		Narrator:  translate.New(cfg, provider, logger),
		Speech:    tts.NewSynthesizer(cfg, engines, logger),
		Images:    imagefetch.New(cfg, client, logger),
		Renderer:  render.New(cfg, runner, prober, logger),
		Publisher: publisher,
	}, nil
}

// Build assembles an Orchestrator with production stages.
func Build(cfg *config.Config, runner toolexec.Runner, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	if err := CheckPreconditions(cfg); err != nil {
		return nil, err
	}
	stages, err := BuildStages(cfg, runner, logger)
	if err != nil {
		return nil, err
	}
	return New(cfg, stages, append([]Option{WithLogger(logger)}, opts...)...)
}
