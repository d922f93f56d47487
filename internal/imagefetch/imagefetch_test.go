package imagefetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"habari/internal/config"
	"habari/internal/httpfetch"
	"habari/internal/logging"
	"habari/internal/services"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func newFetcher(t *testing.T) (*Fetcher, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	client := httpfetch.New("test")
	client.InitialInterval = time.Millisecond
	client.MaxInterval = time.Millisecond
	return New(&cfg, client, logging.NewNop()), cfg.Paths.WorkDir
}

func TestFetchWritesImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(jpegHeader)
	}))
	defer srv.Close()

	f, dir := newFetcher(t)
	asset, err := f.Fetch(context.Background(), srv.URL+"/a.jpg", 3)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if asset.Path != filepath.Join(dir, "image_3.jpg") || asset.ContentType != "image/jpeg" {
		t.Fatalf("unexpected asset %+v", asset)
	}
	data, _ := os.ReadFile(asset.Path)
	if !bytes.Equal(data, jpegHeader) {
		t.Fatalf("unexpected contents %v", data)
	}
}

func TestFetchRejectsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html>consent</html>"))
	}))
	defer srv.Close()

	f, dir := newFetcher(t)
	if _, err := f.Fetch(context.Background(), srv.URL, 1); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "image_1.jpg")); !os.IsNotExist(err) {
		t.Fatal("no file should be written for a rejected response")
	}
}

func TestFetchPropagatesHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f, _ := newFetcher(t)
	if _, err := f.Fetch(context.Background(), srv.URL, 1); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIsNonImage(t *testing.T) {
	for ct, want := range map[string]bool{
		"image/png":                false,
		"image/svg+xml":            false,
		"application/octet-stream": false,
		"text/plain":               true,
		"application/json":         true,
		"application/xml":          true,
	} {
		if got := isNonImage(ct); got != want {
			t.Fatalf("isNonImage(%q) = %v, want %v", ct, got, want)
		}
	}
}
