package publish

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"habari/internal/config"
	"habari/internal/logging"
	"habari/internal/services"
	"habari/internal/toolexec"
)

func testConfig(key string) *config.Config {
	cfg := config.Default()
	cfg.Stream.Key = key
	return &cfg
}

func TestNewRequiresStreamKey(t *testing.T) {
	_, err := New(testConfig("  "), toolexec.RunnerFunc(func(context.Context, string, []string) (toolexec.Result, error) {
		t.Fatal("runner must not be called")
		return toolexec.Result{}, nil
	}), logging.NewNop())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestArgsMatchPushInvocation(t *testing.T) {
	p, err := New(testConfig("abcd-1234"), toolexec.NewExecRunner(), logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := strings.Join(p.Args("/work/playlist.txt"), " ")
	want := "-hide_banner -loglevel warning -re -f concat -safe 0 -i /work/playlist.txt " +
		"-vcodec libx264 -preset veryfast -maxrate 4500k -bufsize 9000k -pix_fmt yuv420p -g 60 " +
		"-c:a aac -b:a 128k -ar 44100 -f flv rtmp://a.rtmp.youtube.com/live2/abcd-1234"
	if got != want {
		t.Fatalf("unexpected args:\n got %s\nwant %s", got, want)
	}
	if strings.Contains(p.RedactedTarget(), "abcd") {
		t.Fatalf("redacted target leaks key: %s", p.RedactedTarget())
	}
}

func TestTimeoutPolicy(t *testing.T) {
	cfg := testConfig("k")
	playlist := 90 * time.Second

	p, _ := New(cfg, toolexec.NewExecRunner(), logging.NewNop())
	if got := p.Timeout(playlist); got != playlist+120*time.Second {
		t.Fatalf("derived timeout = %v", got)
	}

	cfg.Stream.Timeout = 30
	p, _ = New(cfg, toolexec.NewExecRunner(), logging.NewNop())
	if got := p.Timeout(playlist); got != 30*time.Second {
		t.Fatalf("fixed timeout = %v", got)
	}

	cfg.Stream.Timeout = -1
	p, _ = New(cfg, toolexec.NewExecRunner(), logging.NewNop())
	if got := p.Timeout(playlist); got != 0 {
		t.Fatalf("disabled timeout = %v", got)
	}
}

func TestPublishAppliesDeadline(t *testing.T) {
	var sawDeadline bool
	runner := toolexec.RunnerFunc(func(ctx context.Context, binary string, args []string) (toolexec.Result, error) {
		if binary != "ffmpeg" {
			t.Fatalf("unexpected binary %q", binary)
		}
		deadline, ok := ctx.Deadline()
		sawDeadline = ok && time.Until(deadline) > 100*time.Second
		return toolexec.Result{Elapsed: time.Second}, nil
	})
	p, err := New(testConfig("k"), runner, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := p.Publish(context.Background(), "/work/playlist.txt", 10*time.Second)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !sawDeadline {
		t.Fatal("expected a deadline of about playlist duration plus slack")
	}
	if out.Timeout != 130*time.Second || out.Elapsed != time.Second {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestPublishReturnsToolClassification(t *testing.T) {
	runner := toolexec.RunnerFunc(func(ctx context.Context, _ string, _ []string) (toolexec.Result, error) {
		return toolexec.Result{ExitCode: 1, Stderr: []byte("Connection refused")},
			services.Wrap(services.ErrExternalTool, "toolexec", "ffmpeg", "exit status 1", nil)
	})
	p, _ := New(testConfig("k"), runner, logging.NewNop())
	out, err := p.Publish(context.Background(), "/work/playlist.txt", time.Second)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if out.ExitCode != 1 {
		t.Fatalf("exit code = %d", out.ExitCode)
	}
}
