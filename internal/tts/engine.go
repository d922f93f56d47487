package tts

import (
	"context"
	"fmt"
	"strings"

	"habari/internal/config"
	"habari/internal/httpfetch"
	"habari/internal/services"
	"habari/internal/toolexec"
)

// Engine synthesizes text into an audio file at dest.
type Engine interface {
	Name() string
	Synthesize(ctx context.Context, text, dest string) error
}

// BuildEngines constructs the engine chain listed in cfg.TTS.Engines.
func BuildEngines(cfg *config.Config, runner toolexec.Runner, client *httpfetch.Client) ([]Engine, error) {
	engines := make([]Engine, 0, len(cfg.TTS.Engines))
	for _, entry := range cfg.TTS.Engines {
		kind, arg, _ := strings.Cut(entry, ":")
		switch kind {
		case config.EngineEdge:
			engines = append(engines, NewEdgeEngine(runner, cfg.EdgeTTSBinary(), arg))
		case config.EngineGoogle:
			engines = append(engines, NewGoogleEngine(cfg, client, arg))
		case config.EngineOpenAI:
			engines = append(engines, NewOpenAIEngine(cfg, arg))
		default:
			return nil, services.Wrap(services.ErrConfiguration, "tts", "build engines", fmt.Sprintf("unsupported engine %q", entry), nil)
		}
	}
	if len(engines) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "tts", "build engines", "no engines configured", nil)
	}
	return engines, nil
}
