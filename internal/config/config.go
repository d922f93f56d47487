package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Feeds contains the syndication sources and entry defaults.
type Feeds struct {
	URLs                []string `toml:"urls"`
	MaxItemsPerFeed     int      `toml:"max_items_per_feed"`
	RequestTimeout      int      `toml:"request_timeout"`
	PlaceholderTitle    string   `toml:"placeholder_title"`
	PlaceholderSummary  string   `toml:"placeholder_summary"`
	PlaceholderImageURL string   `toml:"placeholder_image_url"`
	UserAgent           string   `toml:"user_agent"`
}

// Translate contains narration translation settings.
type Translate struct {
	Provider       string `toml:"provider"`
	SourceLanguage string `toml:"source_language"`
	TargetLanguage string `toml:"target_language"`
	BaseURL        string `toml:"base_url"`
	MinLength      int    `toml:"min_length"`
	MaxWords       int    `toml:"max_words"`
	RequestTimeout int    `toml:"request_timeout"`
}

// TTS contains the ordered synthesis engine chain.
//
// Engines are written as "kind:argument", for example "edge:sw-TZ-LughaNeural",
// "gtts:sw" or "openai:alloy". They are attempted in the listed order.
type TTS struct {
	Engines        []string `toml:"engines"`
	MinBytes       int64    `toml:"min_bytes"`
	RequestTimeout int      `toml:"request_timeout"`
	GoogleBaseURL  string   `toml:"google_base_url"`
	GoogleRPS      float64  `toml:"google_requests_per_second"`
}

// Images contains illustrative image download settings.
type Images struct {
	RequestTimeout int   `toml:"request_timeout"`
	MaxBytes       int64 `toml:"max_bytes"`
}

// Render contains segment composition settings.
type Render struct {
	Width        int    `toml:"width"`
	Height       int    `toml:"height"`
	Preset       string `toml:"preset"`
	AudioBitrate string `toml:"audio_bitrate"`
	SampleRate   int    `toml:"sample_rate"`
	BlurRadius   string `toml:"blur"`
	MinBytes     int64  `toml:"min_bytes"`
}

// Stream contains live ingestion settings.
type Stream struct {
	IngestURL    string `toml:"ingest_url"`
	Key          string `toml:"key"`
	KeyEnv       string `toml:"key_env"`
	Preset       string `toml:"preset"`
	MaxRate      string `toml:"max_rate"`
	BufSize      string `toml:"buf_size"`
	KeyframeGOP  int    `toml:"keyframe_interval"`
	AudioBitrate string `toml:"audio_bitrate"`
	SampleRate   int    `toml:"sample_rate"`
	// Timeout bounds one push in seconds. Zero derives the bound from the
	// playlist duration plus TimeoutSlack; a negative value disables it.
	Timeout      int `toml:"timeout"`
	TimeoutSlack int `toml:"timeout_slack"`
}

// OpenAI contains shared OpenAI connection settings used by the optional
// translation provider and speech engine.
type OpenAI struct {
	APIKey      string `toml:"api_key"`
	BaseURL     string `toml:"base_url"`
	ChatModel   string `toml:"chat_model"`
	SpeechModel string `toml:"speech_model"`
}

// Tools contains external binary names.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	EdgeTTS string `toml:"edge_tts"`
}

// Workflow contains cycle timing.
type Workflow struct {
	SegmentCooldown       int `toml:"segment_cooldown"`
	EmptyCycleBackoff     int `toml:"empty_cycle_backoff"`
	PublishFailureBackoff int `toml:"publish_failure_backoff"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	CyclePublished bool   `toml:"cycle_published"`
	EmptyCycle     bool   `toml:"empty_cycle"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for habari.
//
// Configuration sections by subsystem:
//   - Paths: working directory for transient media, state and log directories
//   - Feeds: syndication sources and placeholder values
//   - Translate: narration language and provider
//   - TTS: ordered speech synthesis engines
//   - Images: illustrative image download limits
//   - Render: segment resolution and encoder settings
//   - Stream: live ingestion endpoint, credential, and push encoder settings
//   - OpenAI: shared settings for the optional OpenAI provider and engine
//   - Tools: external binaries
//   - Workflow: cooldown and back-off intervals
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Feeds         Feeds         `toml:"feeds"`
	Translate     Translate     `toml:"translate"`
	TTS           TTS           `toml:"tts"`
	Images        Images        `toml:"images"`
	Render        Render        `toml:"render"`
	Stream        Stream        `toml:"stream"`
	OpenAI        OpenAI        `toml:"openai"`
	Tools         Tools         `toml:"tools"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/habari/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file beside the config file or in the
// working directory is loaded first; existing environment variables win.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("habari.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func loadDotEnv(configDir string) error {
	candidates := []string{".env"}
	if configDir != "" && configDir != "." {
		candidates = append(candidates, filepath.Join(configDir, ".env"))
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return fmt.Errorf("load env file %s: %w", candidate, err)
		}
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for rendering and streaming.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFmpeg); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

// FFprobeBinary returns the ffprobe executable name used for duration probing.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFprobe); bin != "" {
		return bin
	}
	return defaultFFprobeBinary
}

// EdgeTTSBinary returns the edge-tts executable used by neural voice engines.
func (c *Config) EdgeTTSBinary() string {
	if bin := strings.TrimSpace(c.Tools.EdgeTTS); bin != "" {
		return bin
	}
	return defaultEdgeTTSBinary
}

// HasStreamKey reports whether a stream credential was resolved.
func (c *Config) HasStreamKey() bool {
	return strings.TrimSpace(c.Stream.Key) != ""
}

// StreamTarget returns the full ingestion address composed of the ingest base and key.
func (c *Config) StreamTarget() string {
	return c.Stream.IngestURL + strings.TrimSpace(c.Stream.Key)
}

// SegmentCooldown returns the pause after each successfully rendered segment.
func (c *Config) SegmentCooldown() time.Duration {
	return time.Duration(c.Workflow.SegmentCooldown) * time.Second
}

// EmptyCycleBackoff returns the wait before re-fetching after a cycle produced no segments.
func (c *Config) EmptyCycleBackoff() time.Duration {
	return time.Duration(c.Workflow.EmptyCycleBackoff) * time.Second
}

// PublishFailureBackoff returns the wait after a cycle that rendered segments
// but could not stream them. Zero restarts the loop immediately.
func (c *Config) PublishFailureBackoff() time.Duration {
	return time.Duration(c.Workflow.PublishFailureBackoff) * time.Second
}

// ManifestPath returns the playlist manifest location inside the work dir.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Paths.WorkDir, manifestFileName)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// UsesEngine reports whether any entry of the synthesis chain is of kind.
func (c *Config) UsesEngine(kind string) bool {
	for _, entry := range c.TTS.Engines {
		if k, _, _ := strings.Cut(entry, ":"); k == kind {
			return true
		}
	}
	return false
}
