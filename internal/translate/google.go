package translate

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"habari/internal/config"
	"habari/internal/httpfetch"
	"habari/internal/services"
	"habari/internal/textutil"
)

// maxChunkChars keeps each request well under the endpoint's URL limit.
const maxChunkChars = 4500

// GoogleProvider uses the public translate web endpoint (client=gtx).
type GoogleProvider struct {
	baseURL string
	timeout time.Duration
	client  *httpfetch.Client
}

// NewGoogleProvider builds a provider from the translate section of cfg.
func NewGoogleProvider(cfg *config.Config, client *httpfetch.Client) *GoogleProvider {
	return &GoogleProvider{
		baseURL: cfg.Translate.BaseURL,
		timeout: time.Duration(cfg.Translate.RequestTimeout) * time.Second,
		client:  client,
	}
}

func (g *GoogleProvider) Name() string { return "google" }

// Translate splits text into sentence-aligned chunks and joins the results.
func (g *GoogleProvider) Translate(ctx context.Context, text, source, target string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if source == "" {
		source = "auto"
	}
	parts := make([]string, 0, 1)
	for _, chunk := range textutil.SplitChunks(text, maxChunkChars) {
		translated, err := g.translateChunk(ctx, chunk, source, target)
		if err != nil {
			return "", err
		}
		if translated = strings.TrimSpace(translated); translated != "" {
			parts = append(parts, translated)
		}
	}
	return strings.Join(parts, " "), nil
}

func (g *GoogleProvider) translateChunk(ctx context.Context, chunk, source, target string) (string, error) {
	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", source)
	query.Set("tl", target)
	query.Set("dt", "t")
	query.Set("q", chunk)

	resp, err := g.client.Get(ctx, httpfetch.Request{
		URL:     g.baseURL + "?" + query.Encode(),
		Accept:  "application/json",
		Timeout: g.timeout,
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "translate", "google", "request failed", err)
	}
	return decodeGTX(resp.Body)
}

// decodeGTX extracts the translated sentences from the endpoint's nested
// array response: [[["translated","original",...],...],...].
func decodeGTX(body []byte) (string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", services.Wrap(services.ErrValidation, "translate", "google", "unexpected response shape", err)
	}
	if len(payload) == 0 {
		return "", nil
	}
	var sentences [][]any
	if err := json.Unmarshal(payload[0], &sentences); err != nil {
		// A null first element means no translation was produced.
		if strings.TrimSpace(string(payload[0])) == "null" {
			return "", nil
		}
		return "", services.Wrap(services.ErrValidation, "translate", "google", "unexpected sentence list", err)
	}
	var b strings.Builder
	for _, sentence := range sentences {
		if len(sentence) == 0 {
			continue
		}
		if s, ok := sentence[0].(string); ok {
			b.WriteString(s)
		}
	}
	return b.String(), nil
}
