package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sys/unix"

	"habari/internal/config"
	"habari/internal/deps"
)

// CheckStreamKey reports whether a stream credential was resolved. The key
// itself never appears in the result.
func CheckStreamKey(cfg *config.Config) Result {
	const name = "Stream key"
	if cfg.HasStreamKey() {
		return Result{Name: name, Passed: true, Required: true, Detail: "configured"}
	}
	return Result{Name: name, Required: true, Detail: fmt.Sprintf("missing (set %s or stream.key)", cfg.Stream.KeyEnv)}
}

// CheckIngest verifies the ingest host accepts TCP connections.
func CheckIngest(ctx context.Context, ingestURL string) Result {
	const name = "Ingest endpoint"

	address, err := ingestAddress(ingestURL)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(checkCtx, "tcp", address)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s unreachable (%s)", address, summarizeNetError(err))}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: address + " reachable"}
}

func ingestAddress(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid ingest url %q", raw)
	}
	if parsed.Port() != "" {
		return parsed.Host, nil
	}
	port := "1935"
	if strings.EqualFold(parsed.Scheme, "rtmps") {
		port = "443"
	}
	return net.JoinHostPort(parsed.Hostname(), port), nil
}

// CheckOpenAI verifies that the OpenAI API is reachable and the key is valid.
func CheckOpenAI(ctx context.Context, cfg *config.Config) Result {
	const name = "OpenAI API"
	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		return Result{Name: name, Required: true, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientCfg := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAI.BaseURL
	}
	client := openai.NewClientWithConfig(clientCfg)
	if _, err := client.ListModels(checkCtx); err != nil {
		return Result{Name: name, Required: true, Detail: summarizeAPIError(err)}
	}
	return Result{Name: name, Passed: true, Required: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Both the run command and the CLI status command use this.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg))
}

func summarizeAPIError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 401 {
		return "auth failed (invalid api key)"
	}
	return summarizeNetError(err)
}

func summarizeNetError(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	return err.Error()
}
