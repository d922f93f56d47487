// Package imagefetch downloads a news item's illustrative image into the work
// directory.
package imagefetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"habari/internal/config"
	"habari/internal/fileutil"
	"habari/internal/httpfetch"
	"habari/internal/logging"
	"habari/internal/services"
)

// Asset is a downloaded image.
type Asset struct {
	Path        string
	Bytes       int64
	ContentType string
}

// Fetcher downloads images with the shared HTTP client.
type Fetcher struct {
	dir      string
	timeout  time.Duration
	maxBytes int64
	client   *httpfetch.Client
	logger   *slog.Logger
}

// New builds a Fetcher from the images section of cfg.
func New(cfg *config.Config, client *httpfetch.Client, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		dir:      cfg.Paths.WorkDir,
		timeout:  time.Duration(cfg.Images.RequestTimeout) * time.Second,
		maxBytes: cfg.Images.MaxBytes,
		client:   client,
		logger:   logging.NewComponentLogger(logger, "imagefetch"),
	}
}

// Path returns image_<index>.jpg in the work directory. The extension is
// nominal; ffmpeg probes the actual format.
func (f *Fetcher) Path(index int) string {
	return filepath.Join(f.dir, fmt.Sprintf("image_%d.jpg", index))
}

// Fetch downloads url to Path(index). Empty bodies and responses that are
// clearly not images are rejected.
func (f *Fetcher) Fetch(ctx context.Context, url string, index int) (Asset, error) {
	resp, err := f.client.Get(ctx, httpfetch.Request{
		URL:      url,
		Accept:   "image/*,*/*;q=0.5",
		Timeout:  f.timeout,
		MaxBytes: f.maxBytes,
	})
	if err != nil {
		return Asset{}, services.Wrap(services.ErrTransient, "imagefetch", "download", url, err)
	}
	if len(resp.Body) == 0 {
		return Asset{}, services.Wrap(services.ErrValidation, "imagefetch", "download", "empty body from "+url, nil)
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(resp.Body)
	}
	if isNonImage(contentType) {
		return Asset{}, services.Wrap(services.ErrValidation, "imagefetch", "download", fmt.Sprintf("%s returned %s", url, contentType), nil)
	}

	dest := f.Path(index)
	if err := fileutil.WriteFileAtomic(dest, resp.Body, 0o644); err != nil {
		return Asset{}, services.Wrap(services.ErrTransient, "imagefetch", "write", dest, err)
	}
	logging.WithContext(ctx, f.logger).Debug("image downloaded",
		logging.String(logging.FieldEventType, "image_downloaded"),
		logging.String("url", url),
		logging.Int("bytes", len(resp.Body)),
		logging.String("content_type", contentType),
	)
	return Asset{Path: dest, Bytes: int64(len(resp.Body)), ContentType: contentType}, nil
}

// isNonImage rejects text and markup responses such as error or consent pages.
// Unknown binary types pass through for ffmpeg to judge.
func isNonImage(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return strings.HasPrefix(ct, "text/") || strings.Contains(ct, "json") ||
		(strings.Contains(ct, "xml") && !strings.Contains(ct, "svg"))
}
