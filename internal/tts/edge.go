package tts

import (
	"context"
	"fmt"

	"habari/internal/toolexec"
)

// EdgeEngine drives the edge-tts command line client for neural voices.
type EdgeEngine struct {
	runner toolexec.Runner
	binary string
	voice  string
}

// NewEdgeEngine returns an engine speaking with voice.
func NewEdgeEngine(runner toolexec.Runner, binary, voice string) *EdgeEngine {
	return &EdgeEngine{runner: runner, binary: binary, voice: voice}
}

func (e *EdgeEngine) Name() string { return "edge:" + e.voice }

// Args returns the edge-tts invocation for text and dest.
func (e *EdgeEngine) Args(text, dest string) []string {
	return []string{"--voice", e.voice, "--text", text, "--write-media", dest}
}

func (e *EdgeEngine) Synthesize(ctx context.Context, text, dest string) error {
	res, err := e.runner.Run(ctx, e.binary, e.Args(text, dest))
	if err != nil {
		return fmt.Errorf("edge-tts %s: %w: %s", e.voice, err, res.StderrTail(3))
	}
	return nil
}
