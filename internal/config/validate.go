package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Engine kinds accepted in tts.engines.
const (
	EngineEdge   = "edge"
	EngineGoogle = "gtts"
	EngineOpenAI = "openai"
)

// Validate ensures the configuration is usable. The stream key is not checked
// here so inspection commands work without it; the broadcaster treats a missing
// key as a fatal precondition.
func (c *Config) Validate() error {
	if err := c.validateFeeds(); err != nil {
		return err
	}
	if err := c.validateTranslate(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateStream(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateFeeds() error {
	if len(c.Feeds.URLs) == 0 {
		return errors.New("feeds.urls must include at least one feed address")
	}
	for _, raw := range c.Feeds.URLs {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" {
			return fmt.Errorf("feeds.urls: invalid feed address %q", raw)
		}
	}
	if !strings.Contains(c.Feeds.PlaceholderImageURL, "{token}") {
		return errors.New("feeds.placeholder_image_url must contain a {token} placeholder")
	}
	return nil
}

func (c *Config) validateTranslate() error {
	switch c.Translate.Provider {
	case "google":
	case "openai":
		if c.OpenAI.APIKey == "" {
			return errors.New("openai.api_key must be set when translate.provider is \"openai\" (or set OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("translate.provider: unsupported value %q", c.Translate.Provider)
	}
	return nil
}

func (c *Config) validateTTS() error {
	for _, entry := range c.TTS.Engines {
		kind, arg, _ := strings.Cut(entry, ":")
		switch kind {
		case EngineEdge, EngineGoogle:
			if arg == "" {
				return fmt.Errorf("tts.engines: %q requires a voice or language after the colon", entry)
			}
		case EngineOpenAI:
			if arg == "" {
				return fmt.Errorf("tts.engines: %q requires a voice after the colon", entry)
			}
			if c.OpenAI.APIKey == "" {
				return errors.New("openai.api_key must be set when an openai tts engine is configured")
			}
		default:
			return fmt.Errorf("tts.engines: unsupported engine kind %q", kind)
		}
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.Width%2 != 0 || c.Render.Height%2 != 0 {
		return errors.New("render.width and render.height must be even for yuv420p output")
	}
	return nil
}

func (c *Config) validateStream() error {
	parsed, err := url.Parse(c.Stream.IngestURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("stream.ingest_url: invalid address %q", c.Stream.IngestURL)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.SegmentCooldown < 0 {
		return errors.New("workflow.segment_cooldown must be >= 0")
	}
	if c.Workflow.EmptyCycleBackoff <= 0 {
		return errors.New("workflow.empty_cycle_backoff must be positive")
	}
	if c.Workflow.PublishFailureBackoff < 0 {
		return errors.New("workflow.publish_failure_backoff must be >= 0")
	}
	return nil
}
