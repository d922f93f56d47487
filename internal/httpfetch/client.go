// Package httpfetch performs the GET requests shared by the feed, translation,
// speech, and image stages, retrying transient failures with exponential
// back-off.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"habari/internal/services"
)

const (
	defaultMaxTries    = 3
	defaultMaxBytes    = 32 << 20
	defaultInitialWait = time.Second
	defaultMaxWait     = 10 * time.Second
)

// Client wraps an http.Client with retry policy and a fixed User-Agent.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	// MaxTries bounds attempts per request including the first.
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Request describes one GET.
type Request struct {
	URL     string
	Accept  string
	Header  http.Header
	Timeout time.Duration
	// MaxBytes caps the body; larger responses fail permanently.
	MaxBytes int64
}

// Response is a fully read response body.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// New returns a Client with production defaults.
func New(userAgent string) *Client {
	return &Client{
		HTTP: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 15 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("stopped after 10 redirects")
				}
				return nil
			},
		},
		UserAgent:       strings.TrimSpace(userAgent),
		MaxTries:        defaultMaxTries,
		InitialInterval: defaultInitialWait,
		MaxInterval:     defaultMaxWait,
	}
}

// Get performs req, retrying network errors and retryable statuses. A 404 or
// 410 is reported as ErrNotFound, other 4xx as ErrValidation; both stop retries.
func (c *Client) Get(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.URL) == "" {
		return Response{}, services.Wrap(services.ErrValidation, "httpfetch", "get", "empty url", nil)
	}
	maxBytes := req.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}

	operation := func() (Response, error) {
		attemptCtx := ctx
		if req.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, req.Timeout)
			defer cancel()
		}
		httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, req.URL, nil)
		if err != nil {
			return Response{}, services.Wrap(services.ErrValidation, "httpfetch", "build request", req.URL, err)
		}
		for key, values := range req.Header {
			for _, value := range values {
				httpReq.Header.Add(key, value)
			}
		}
		if c.UserAgent != "" {
			httpReq.Header.Set("User-Agent", c.UserAgent)
		}
		if req.Accept != "" {
			httpReq.Header.Set("Accept", req.Accept)
		}

		resp, err := c.httpClient().Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return Response{}, backoff.Permanent(ctx.Err())
			}
			return Response{}, services.Wrap(services.ErrTransient, "httpfetch", "get", req.URL, err)
		}
		defer resp.Body.Close()

		if IsRetryableStatus(resp.StatusCode) {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			return Response{}, services.Wrap(services.ErrTransient, "httpfetch", "get", fmt.Sprintf("%s: status %d", req.URL, resp.StatusCode), nil)
		}
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			return Response{}, services.Wrap(services.ErrNotFound, "httpfetch", "get", fmt.Sprintf("%s: status %d", req.URL, resp.StatusCode), nil)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return Response{}, services.Wrap(services.ErrValidation, "httpfetch", "get", fmt.Sprintf("%s: status %d", req.URL, resp.StatusCode), nil)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
		if err != nil {
			return Response{}, services.Wrap(services.ErrTransient, "httpfetch", "read body", req.URL, err)
		}
		if int64(len(body)) > maxBytes {
			return Response{}, services.Wrap(services.ErrValidation, "httpfetch", "read body", fmt.Sprintf("%s: body exceeds %d bytes", req.URL, maxBytes), nil)
		}
		return Response{
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        body,
		}, nil
	}

	attempt := func() (Response, error) {
		resp, err := operation()
		if services.IsPermanent(err) {
			return resp, backoff.Permanent(err)
		}
		return resp, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.InitialInterval
	bo.MaxInterval = c.MaxInterval

	tries := c.MaxTries
	if tries == 0 {
		tries = defaultMaxTries
	}
	return backoff.Retry(ctx, attempt, backoff.WithBackOff(bo), backoff.WithMaxTries(tries), backoff.WithMaxElapsedTime(2*time.Minute))
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// IsRetryableStatus reports statuses worth another attempt.
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
