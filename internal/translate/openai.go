package translate

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"habari/internal/config"
	"habari/internal/services"
)

// OpenAIProvider translates with a chat completion model.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider builds a provider from the openai section of cfg.
func NewOpenAIProvider(cfg *config.Config) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAI.BaseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(clientCfg), model: cfg.OpenAI.ChatModel}
}

func (o *OpenAIProvider) Name() string { return "openai" }

func (o *OpenAIProvider) Translate(ctx context.Context, text, source, target string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	from := "the detected source language"
	if source != "" && source != "auto" {
		from = "language code " + source
	}
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("Translate the user's news text from %s into language code %s. "+
					"Reply with the translation only, as plain prose suitable for reading aloud.", from, target),
			},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "translate", "openai", "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
