package tts

import (
	"context"
	"io"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"habari/internal/config"
	"habari/internal/services"
)

// OpenAIEngine synthesizes speech with the OpenAI audio API.
type OpenAIEngine struct {
	client *openai.Client
	model  string
	voice  string
}

// NewOpenAIEngine returns an engine speaking with voice.
func NewOpenAIEngine(cfg *config.Config, voice string) *OpenAIEngine {
	clientCfg := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAI.BaseURL
	}
	return &OpenAIEngine{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.OpenAI.SpeechModel,
		voice:  voice,
	}
}

func (o *OpenAIEngine) Name() string { return "openai:" + o.voice }

func (o *OpenAIEngine) Synthesize(ctx context.Context, text, dest string) error {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          text,
		Voice:          openai.SpeechVoice(o.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "tts", "openai", "create speech", err)
	}
	defer resp.Close()

	out, err := os.Create(dest)
	if err != nil {
		return services.Wrap(services.ErrTransient, "tts", "openai", "create output", err)
	}
	if _, err := io.Copy(out, resp); err != nil {
		_ = out.Close()
		return services.Wrap(services.ErrTransient, "tts", "openai", "write audio", err)
	}
	return out.Close()
}
