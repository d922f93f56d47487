package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"habari/internal/config"
)

func TestLoadDefaultConfigUsesEnvStreamKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("YOUTUBE_STREAM_KEY", "  live-key  ")
	t.Setenv("OPENAI_API_KEY", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "habari", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Stream.Key != "live-key" {
		t.Fatalf("expected stream key from env, got %q", cfg.Stream.Key)
	}
	if !cfg.HasStreamKey() {
		t.Fatal("expected HasStreamKey to report true")
	}
	if got := cfg.StreamTarget(); got != "rtmp://a.rtmp.youtube.com/live2/live-key" {
		t.Fatalf("unexpected stream target: %q", got)
	}
	if len(cfg.Feeds.URLs) != 2 {
		t.Fatalf("expected two default feeds, got %v", cfg.Feeds.URLs)
	}
	if cfg.Feeds.MaxItemsPerFeed != 6 {
		t.Fatalf("unexpected max items: %d", cfg.Feeds.MaxItemsPerFeed)
	}
	if cfg.Translate.MinLength != 5 || cfg.Translate.MaxWords != 80 {
		t.Fatalf("unexpected translate bounds: %+v", cfg.Translate)
	}
	if cfg.TTS.Engines[0] != "edge:sw-TZ-LughaNeural" || cfg.TTS.Engines[2] != "gtts:sw" {
		t.Fatalf("unexpected engine chain: %v", cfg.TTS.Engines)
	}
	if cfg.TTS.MinBytes != 100 || cfg.Render.MinBytes != 1000 {
		t.Fatalf("unexpected size thresholds: tts=%d render=%d", cfg.TTS.MinBytes, cfg.Render.MinBytes)
	}
	if cfg.EmptyCycleBackoff().Seconds() != 60 {
		t.Fatalf("unexpected back-off: %v", cfg.EmptyCycleBackoff())
	}
	if cfg.PublishFailureBackoff().Seconds() != 10 {
		t.Fatalf("unexpected publish back-off: %v", cfg.PublishFailureBackoff())
	}
	if cfg.ManifestPath() != filepath.Join(wantWork, "playlist.txt") {
		t.Fatalf("unexpected manifest path: %q", cfg.ManifestPath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadWithoutStreamKeyStillValidates(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("YOUTUBE_STREAM_KEY", "")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HasStreamKey() {
		t.Fatal("expected no stream key")
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CUSTOM_KEY", "from-custom-env")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "habari.toml")

	type payload struct {
		Feeds struct {
			URLs []string `toml:"urls"`
		} `toml:"feeds"`
		Stream struct {
			KeyEnv string `toml:"key_env"`
		} `toml:"stream"`
		Workflow struct {
			EmptyCycleBackoff int `toml:"empty_cycle_backoff"`
		} `toml:"workflow"`
		TTS struct {
			Engines []string `toml:"engines"`
		} `toml:"tts"`
	}
	custom := payload{}
	custom.Feeds.URLs = []string{" https://example.com/a.xml ", "https://example.com/a.xml", "https://example.com/b.xml"}
	custom.Stream.KeyEnv = "CUSTOM_KEY"
	custom.Workflow.EmptyCycleBackoff = 5
	custom.TTS.Engines = []string{" GTTS : en "}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if len(cfg.Feeds.URLs) != 2 || cfg.Feeds.URLs[0] != "https://example.com/a.xml" {
		t.Fatalf("expected trimmed, de-duplicated feeds, got %v", cfg.Feeds.URLs)
	}
	if cfg.Stream.Key != "from-custom-env" {
		t.Fatalf("expected key from custom env var, got %q", cfg.Stream.Key)
	}
	if cfg.Workflow.EmptyCycleBackoff != 5 {
		t.Fatalf("unexpected back-off: %d", cfg.Workflow.EmptyCycleBackoff)
	}
	if len(cfg.TTS.Engines) != 1 || cfg.TTS.Engines[0] != "gtts:en" {
		t.Fatalf("expected normalized engine entry, got %v", cfg.TTS.Engines)
	}
}

func TestLoadReadsDotEnvBesideConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	// Register for cleanup, then unset so godotenv is allowed to populate it.
	t.Setenv("HABARI_TEST_KEY", "")
	os.Unsetenv("HABARI_TEST_KEY")

	dir := t.TempDir()
	configPath := filepath.Join(dir, "habari.toml")
	if err := os.WriteFile(configPath, []byte("[stream]\nkey_env = \"HABARI_TEST_KEY\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("HABARI_TEST_KEY=dotenv-key\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Stream.Key != "dotenv-key" {
		t.Fatalf("expected key from .env, got %q", cfg.Stream.Key)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "no feeds",
			mutate:  func(c *config.Config) { c.Feeds.URLs = nil },
			wantErr: "feeds.urls",
		},
		{
			name:    "placeholder without token",
			mutate:  func(c *config.Config) { c.Feeds.PlaceholderImageURL = "https://picsum.photos/1920/1080" },
			wantErr: "{token}",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *config.Config) { c.Translate.Provider = "bing" },
			wantErr: "translate.provider",
		},
		{
			name:    "openai provider without key",
			mutate:  func(c *config.Config) { c.Translate.Provider = "openai" },
			wantErr: "openai.api_key",
		},
		{
			name:    "unknown engine",
			mutate:  func(c *config.Config) { c.TTS.Engines = []string{"polly:joanna"} },
			wantErr: "unsupported engine kind",
		},
		{
			name:    "engine without voice",
			mutate:  func(c *config.Config) { c.TTS.Engines = []string{"edge:"} },
			wantErr: "requires a voice",
		},
		{
			name:    "odd width",
			mutate:  func(c *config.Config) { c.Render.Width = 1921 },
			wantErr: "even",
		},
		{
			name:    "bad ingest",
			mutate:  func(c *config.Config) { c.Stream.IngestURL = "not a url" },
			wantErr: "stream.ingest_url",
		},
		{
			name:    "zero back-off",
			mutate:  func(c *config.Config) { c.Workflow.EmptyCycleBackoff = 0 },
			wantErr: "empty_cycle_backoff",
		},
		{
			name:    "negative publish back-off",
			mutate:  func(c *config.Config) { c.Workflow.PublishFailureBackoff = -1 },
			wantErr: "publish_failure_backoff",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Render.Width != 1920 || cfg.Render.Height != 1080 {
		t.Fatalf("unexpected sample render size: %dx%d", cfg.Render.Width, cfg.Render.Height)
	}
}
