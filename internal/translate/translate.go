// Package translate turns a news item into a bounded narration script in the
// broadcast language.
package translate

import (
	"context"
	"log/slog"
	"strings"

	"habari/internal/config"
	"habari/internal/feed"
	"habari/internal/logging"
	"habari/internal/textutil"
)

// Provider translates text between languages. source may be "auto".
type Provider interface {
	Name() string
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Translator produces narration scripts from feed items.
type Translator struct {
	provider  Provider
	source    string
	target    string
	minLength int
	maxWords  int
	logger    *slog.Logger
}

// New builds a Translator around provider using the translate section of cfg.
func New(cfg *config.Config, provider Provider, logger *slog.Logger) *Translator {
	return &Translator{
		provider:  provider,
		source:    cfg.Translate.SourceLanguage,
		target:    cfg.Translate.TargetLanguage,
		minLength: cfg.Translate.MinLength,
		maxWords:  cfg.Translate.MaxWords,
		logger:    logging.NewComponentLogger(logger, "translate"),
	}
}

// Narration translates the item's summary and shapes it into a script. When
// the provider fails or returns fewer than minLength characters, the item's
// title is used untranslated. Narration never returns an empty string for an
// item with a title.
func (t *Translator) Narration(ctx context.Context, item feed.Item) string {
	logger := logging.WithContext(ctx, t.logger)

	translated, err := t.provider.Translate(ctx, item.Summary, t.source, t.target)
	translated = strings.TrimSpace(translated)
	switch {
	case err != nil:
		logging.WarnWithContext(logger, "translation failed; narrating original title", "translation_failed",
			logging.String("provider", t.provider.Name()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check translation provider availability"),
			logging.String(logging.FieldImpact, "segment narrates the untranslated headline"),
		)
		translated = item.Title
	case textutil.RuneLen(translated) < t.minLength:
		logger.Info("translation too short; narrating original title",
			logging.String(logging.FieldEventType, "translation_fallback"),
			logging.String("provider", t.provider.Name()),
			logging.Int("length", textutil.RuneLen(translated)),
			logging.Int("min_length", t.minLength),
		)
		translated = item.Title
	}
	return Script(translated, t.maxWords)
}

// Script bounds text to maxWords words joined by single spaces and ensures it
// ends with sentence punctuation.
func Script(text string, maxWords int) string {
	return textutil.EnsureTerminal(textutil.TruncateWords(text, maxWords))
}

// NewProvider selects the provider named by cfg.Translate.Provider.
func NewProvider(cfg *config.Config, google *GoogleProvider) Provider {
	if cfg.Translate.Provider == "openai" {
		return NewOpenAIProvider(cfg)
	}
	return google
}
