package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"habari/internal/config"
)

// ConfigOption adjusts the config built by NewConfig.
type ConfigOption func(t testing.TB, cfg *config.Config)

// NewConfig returns a valid config rooted in a fresh temp directory with
// work, state and log dirs created. It carries a stream key and one
// unreachable feed so nothing touches the network unless a test opts in.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfg := config.Default()
	root := t.TempDir()
	cfg.Paths = config.Paths{
		WorkDir:  filepath.Join(root, "work"),
		StateDir: filepath.Join(root, "state"),
		LogDir:   filepath.Join(root, "logs"),
	}
	cfg.Stream.Key = "test-stream-key"
	cfg.Feeds.URLs = []string{"https://feeds.invalid/rss.xml"}
	cfg.Notifications.NtfyTopic = ""

	for _, opt := range opts {
		opt(t, &cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithStreamKey overrides the resolved stream key; "" simulates a missing
// credential.
func WithStreamKey(key string) ConfigOption {
	return func(_ testing.TB, cfg *config.Config) {
		cfg.Stream.Key = key
	}
}

// WithStubbedTools points [tools] at shell stubs that exit 0. The ffmpeg and
// ffprobe stubs answer -version the way the real tools do.
func WithStubbedTools() ConfigOption {
	return func(t testing.TB, cfg *config.Config) {
		t.Helper()
		binDir := filepath.Join(filepath.Dir(cfg.Paths.WorkDir), "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			t.Fatalf("mkdir bin dir: %v", err)
		}
		stub := func(name, body string) string {
			path := filepath.Join(binDir, name)
			if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"exit 0\n"), 0o755); err != nil {
				t.Fatalf("write stub %s: %v", name, err)
			}
			return path
		}
		cfg.Tools.FFmpeg = stub("ffmpeg", "echo 'ffmpeg version 0.0-stub'\n")
		cfg.Tools.FFprobe = stub("ffprobe", "echo 'ffprobe version 0.0-stub'\n")
		cfg.Tools.EdgeTTS = stub("edge-tts", "")
	}
}
