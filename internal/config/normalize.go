package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFeeds()
	c.normalizeTranslate()
	c.normalizeTTS()
	c.normalizeMedia()
	c.normalizeStream()
	c.normalizeOpenAI()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFeeds() {
	urls := make([]string, 0, len(c.Feeds.URLs))
	seen := make(map[string]struct{}, len(c.Feeds.URLs))
	for _, raw := range c.Feeds.URLs {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		urls = append(urls, trimmed)
	}
	c.Feeds.URLs = urls
	if c.Feeds.MaxItemsPerFeed <= 0 {
		c.Feeds.MaxItemsPerFeed = defaultMaxItemsPerFeed
	}
	if c.Feeds.RequestTimeout <= 0 {
		c.Feeds.RequestTimeout = defaultFeedTimeout
	}
	c.Feeds.PlaceholderTitle = strings.TrimSpace(c.Feeds.PlaceholderTitle)
	if c.Feeds.PlaceholderTitle == "" {
		c.Feeds.PlaceholderTitle = defaultPlaceholderTitle
	}
	c.Feeds.PlaceholderSummary = strings.TrimSpace(c.Feeds.PlaceholderSummary)
	if c.Feeds.PlaceholderSummary == "" {
		c.Feeds.PlaceholderSummary = defaultPlaceholderSummary
	}
	c.Feeds.PlaceholderImageURL = strings.TrimSpace(c.Feeds.PlaceholderImageURL)
	if c.Feeds.PlaceholderImageURL == "" {
		c.Feeds.PlaceholderImageURL = defaultPlaceholderImageURL
	}
	c.Feeds.UserAgent = strings.TrimSpace(c.Feeds.UserAgent)
	if c.Feeds.UserAgent == "" {
		c.Feeds.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeTranslate() {
	c.Translate.Provider = strings.ToLower(strings.TrimSpace(c.Translate.Provider))
	if c.Translate.Provider == "" {
		c.Translate.Provider = defaultTranslateProvider
	}
	c.Translate.SourceLanguage = strings.ToLower(strings.TrimSpace(c.Translate.SourceLanguage))
	if c.Translate.SourceLanguage == "" {
		c.Translate.SourceLanguage = defaultSourceLanguage
	}
	c.Translate.TargetLanguage = strings.ToLower(strings.TrimSpace(c.Translate.TargetLanguage))
	if c.Translate.TargetLanguage == "" {
		c.Translate.TargetLanguage = defaultTargetLanguage
	}
	c.Translate.BaseURL = strings.TrimSpace(c.Translate.BaseURL)
	if c.Translate.BaseURL == "" {
		c.Translate.BaseURL = defaultTranslateBaseURL
	}
	if c.Translate.MinLength <= 0 {
		c.Translate.MinLength = defaultTranslateMinLength
	}
	if c.Translate.MaxWords <= 0 {
		c.Translate.MaxWords = defaultTranslateMaxWords
	}
	if c.Translate.RequestTimeout <= 0 {
		c.Translate.RequestTimeout = defaultTranslateTimeout
	}
}

func (c *Config) normalizeTTS() {
	engines := make([]string, 0, len(c.TTS.Engines))
	for _, raw := range c.TTS.Engines {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		kind, arg, _ := strings.Cut(trimmed, ":")
		engines = append(engines, strings.ToLower(strings.TrimSpace(kind))+":"+strings.TrimSpace(arg))
	}
	if len(engines) == 0 {
		engines = append(engines, defaultEngines...)
	}
	c.TTS.Engines = engines
	if c.TTS.MinBytes <= 0 {
		c.TTS.MinBytes = defaultTTSMinBytes
	}
	if c.TTS.RequestTimeout <= 0 {
		c.TTS.RequestTimeout = defaultTTSTimeout
	}
	c.TTS.GoogleBaseURL = strings.TrimSpace(c.TTS.GoogleBaseURL)
	if c.TTS.GoogleBaseURL == "" {
		c.TTS.GoogleBaseURL = defaultGoogleTTSBaseURL
	}
	if c.TTS.GoogleRPS <= 0 {
		c.TTS.GoogleRPS = defaultGoogleTTSRPS
	}
}

func (c *Config) normalizeMedia() {
	if c.Images.RequestTimeout <= 0 {
		c.Images.RequestTimeout = defaultImageTimeout
	}
	if c.Images.MaxBytes <= 0 {
		c.Images.MaxBytes = defaultImageMaxBytes
	}
	if c.Render.Width <= 0 {
		c.Render.Width = defaultRenderWidth
	}
	if c.Render.Height <= 0 {
		c.Render.Height = defaultRenderHeight
	}
	c.Render.Preset = strings.TrimSpace(c.Render.Preset)
	if c.Render.Preset == "" {
		c.Render.Preset = defaultRenderPreset
	}
	c.Render.AudioBitrate = strings.TrimSpace(c.Render.AudioBitrate)
	if c.Render.AudioBitrate == "" {
		c.Render.AudioBitrate = defaultRenderAudioBitrate
	}
	if c.Render.SampleRate <= 0 {
		c.Render.SampleRate = defaultSampleRate
	}
	c.Render.BlurRadius = strings.TrimSpace(c.Render.BlurRadius)
	if c.Render.BlurRadius == "" {
		c.Render.BlurRadius = defaultRenderBlur
	}
	if c.Render.MinBytes <= 0 {
		c.Render.MinBytes = defaultRenderMinBytes
	}
}

func (c *Config) normalizeStream() {
	c.Stream.IngestURL = strings.TrimSpace(c.Stream.IngestURL)
	if c.Stream.IngestURL == "" {
		c.Stream.IngestURL = defaultIngestURL
	}
	c.Stream.KeyEnv = strings.TrimSpace(c.Stream.KeyEnv)
	if c.Stream.KeyEnv == "" {
		c.Stream.KeyEnv = defaultStreamKeyEnv
	}
	c.Stream.Key = strings.TrimSpace(c.Stream.Key)
	if c.Stream.Key == "" {
		if value, ok := os.LookupEnv(c.Stream.KeyEnv); ok {
			c.Stream.Key = strings.TrimSpace(value)
		}
	}
	c.Stream.Preset = strings.TrimSpace(c.Stream.Preset)
	if c.Stream.Preset == "" {
		c.Stream.Preset = defaultStreamPreset
	}
	c.Stream.MaxRate = strings.TrimSpace(c.Stream.MaxRate)
	if c.Stream.MaxRate == "" {
		c.Stream.MaxRate = defaultStreamMaxRate
	}
	c.Stream.BufSize = strings.TrimSpace(c.Stream.BufSize)
	if c.Stream.BufSize == "" {
		c.Stream.BufSize = defaultStreamBufSize
	}
	if c.Stream.KeyframeGOP <= 0 {
		c.Stream.KeyframeGOP = defaultStreamGOP
	}
	c.Stream.AudioBitrate = strings.TrimSpace(c.Stream.AudioBitrate)
	if c.Stream.AudioBitrate == "" {
		c.Stream.AudioBitrate = defaultStreamAudioBitrate
	}
	if c.Stream.SampleRate <= 0 {
		c.Stream.SampleRate = defaultSampleRate
	}
	if c.Stream.TimeoutSlack <= 0 {
		c.Stream.TimeoutSlack = defaultStreamTimeoutSlack
	}
}

func (c *Config) normalizeOpenAI() {
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if c.OpenAI.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.OpenAI.APIKey = strings.TrimSpace(value)
		}
	}
	c.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAI.BaseURL), "/")
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	c.OpenAI.ChatModel = strings.TrimSpace(c.OpenAI.ChatModel)
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = defaultOpenAIChatModel
	}
	c.OpenAI.SpeechModel = strings.TrimSpace(c.OpenAI.SpeechModel)
	if c.OpenAI.SpeechModel == "" {
		c.OpenAI.SpeechModel = defaultOpenAISpeechModel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
