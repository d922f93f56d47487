package tts

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"habari/internal/config"
	"habari/internal/httpfetch"
	"habari/internal/services"
	"habari/internal/textutil"
)

// googleChunkChars is the longest text the translate_tts endpoint accepts per request.
const googleChunkChars = 200

// GoogleEngine requests MP3 audio from the Google translate speech endpoint.
// Text longer than one request is split and the MP3 frames concatenated.
type GoogleEngine struct {
	baseURL string
	lang    string
	timeout time.Duration
	client  *httpfetch.Client
	limiter *rate.Limiter
}

// NewGoogleEngine returns an engine speaking lang.
func NewGoogleEngine(cfg *config.Config, client *httpfetch.Client, lang string) *GoogleEngine {
	return &GoogleEngine{
		baseURL: cfg.TTS.GoogleBaseURL,
		lang:    lang,
		timeout: time.Duration(cfg.TTS.RequestTimeout) * time.Second,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.TTS.GoogleRPS), 1),
	}
}

func (g *GoogleEngine) Name() string { return "gtts:" + g.lang }

func (g *GoogleEngine) Synthesize(ctx context.Context, text, dest string) error {
	chunks := textutil.SplitChunks(text, googleChunkChars)
	if len(chunks) == 0 {
		return services.Wrap(services.ErrValidation, "tts", "gtts", "empty text", nil)
	}
	var audio bytes.Buffer
	for idx, chunk := range chunks {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		query := url.Values{}
		query.Set("ie", "UTF-8")
		query.Set("client", "tw-ob")
		query.Set("tl", g.lang)
		query.Set("q", chunk)
		query.Set("total", strconv.Itoa(len(chunks)))
		query.Set("idx", strconv.Itoa(idx))
		query.Set("textlen", strconv.Itoa(len([]rune(chunk))))

		resp, err := g.client.Get(ctx, httpfetch.Request{
			URL:     g.baseURL + "?" + query.Encode(),
			Accept:  "audio/mpeg",
			Timeout: g.timeout,
		})
		if err != nil {
			return services.Wrap(services.ErrTransient, "tts", "gtts", "chunk "+strconv.Itoa(idx+1)+" failed", err)
		}
		audio.Write(resp.Body)
	}
	if err := os.WriteFile(dest, audio.Bytes(), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "tts", "gtts", "write audio", err)
	}
	return nil
}
