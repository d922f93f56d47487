package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dustin/go-humanize"

	"habari/internal/config"
	"habari/internal/httpfetch"
)

const userAgent = "habari/0.1"

// Service defines the notification surface exposed to the orchestrator.
type Service interface {
	NotifyCyclePublished(ctx context.Context, segments int, playlist time.Duration) error
	NotifyEmptyCycle(ctx context.Context, items int, backoff time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// Kind identifies an event category that can be switched off in config.
type Kind string

const (
	KindPublished Kind = "published"
	KindEmpty     Kind = "empty"
	KindError     Kind = "error"
	KindTest      Kind = "test"
)

type message struct {
	kind     Kind
	title    string
	body     string
	tags     []string
	priority string
}

// NewService returns an ntfy-backed Service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Kind]bool{
			KindPublished: cfg.Notifications.CyclePublished,
			KindEmpty:     cfg.Notifications.EmptyCycle,
			KindError:     cfg.Notifications.Errors,
			KindTest:      true,
		},
		retryWait: 500 * time.Millisecond,
	}
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	enabled   map[Kind]bool
	retryWait time.Duration
}

func (n *ntfyService) NotifyCyclePublished(ctx context.Context, segments int, playlist time.Duration) error {
	playlist = max(playlist.Round(time.Second), 0)
	noun := "segments"
	if segments == 1 {
		noun = "segment"
	}
	return n.send(ctx, message{
		kind:  KindPublished,
		title: "Habari - Broadcast Complete",
		body:  fmt.Sprintf("📡 Streamed %d %s in %s", segments, noun, playlist),
		tags:  []string{"habari", "stream", "published"},
	})
}

func (n *ntfyService) NotifyEmptyCycle(ctx context.Context, items int, retryIn time.Duration) error {
	wait := retryIn.Round(time.Second)
	body := fmt.Sprintf("No news items fetched; retrying in %s", wait)
	if items > 0 {
		body = fmt.Sprintf("No segments rendered from %s items; retrying in %s", humanize.Comma(int64(items)), wait)
	}
	return n.send(ctx, message{
		kind:  KindEmpty,
		title: "Habari - Empty Cycle",
		body:  body,
		tags:  []string{"habari", "cycle", "empty"},
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, during string) error {
	body := "❌ Error"
	if during = strings.TrimSpace(during); during != "" {
		body += " during " + during
	}
	if err != nil {
		body += ": " + err.Error()
	}
	return n.send(ctx, message{
		kind:     KindError,
		title:    "Habari - Error",
		body:     body,
		tags:     []string{"habari", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, message{
		kind:     KindTest,
		title:    "Habari - Test",
		body:     "🧪 Notification system test",
		tags:     []string{"habari", "test"},
		priority: "low",
	})
}

// send posts msg to the topic when its kind is enabled. Rate-limit and 5xx
// replies are retried a few times; other failures return immediately.
func (n *ntfyService) send(ctx context.Context, msg message) error {
	if !n.enabled[msg.kind] {
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = n.retryWait
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, n.post(ctx, msg)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(3), backoff.WithMaxElapsedTime(30*time.Second))
	return err
}

func (n *ntfyService) post(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build ntfy request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", msg.title)
	req.Header.Set("Tags", strings.Join(msg.tags, ","))
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	err = fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	if httpfetch.IsRetryableStatus(resp.StatusCode) {
		return err
	}
	return backoff.Permanent(err)
}

type noopService struct{}

func (noopService) NotifyCyclePublished(context.Context, int, time.Duration) error { return nil }
func (noopService) NotifyEmptyCycle(context.Context, int, time.Duration) error     { return nil }
func (noopService) NotifyError(context.Context, error, string) error               { return nil }
func (noopService) TestNotification(context.Context) error                         { return nil }
