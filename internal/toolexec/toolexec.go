// Package toolexec is the boundary through which habari invokes external
// binaries (ffprobe, ffmpeg, edge-tts). Every call is synchronous and returns
// the exit code plus captured output; callers decide success from the exit
// code and the artifacts the tool leaves behind.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"habari/internal/services"
)

// maxCapture bounds how much of each stream is retained. Long-running pushes
// write progress to stderr for hours; only the tail is useful for diagnostics.
const maxCapture = 64 << 10

// stopGrace is how long a cancelled child gets between SIGINT and SIGKILL.
const stopGrace = 10 * time.Second

// Result holds the outcome of one invocation.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Elapsed  time.Duration
}

// StderrTail returns up to n trailing lines of stderr for log output.
func (r Result) StderrTail(n int) string {
	return tailLines(string(r.Stderr), n)
}

// Runner executes a binary with arguments and waits for it to exit.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) (Result, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, binary string, args []string) (Result, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, binary string, args []string) (Result, error) {
	return f(ctx, binary, args)
}

// ExecRunner runs commands with os/exec. A cancelled context interrupts the
// child first so ffmpeg can close its output cleanly.
type ExecRunner struct {
	// Dir is the working directory for the child; empty inherits ours.
	Dir string
}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner. A non-zero exit returns an ErrExternalTool error with
// the Result still populated; a context expiry returns ErrTimeout.
func (r *ExecRunner) Run(ctx context.Context, binary string, args []string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return Result{ExitCode: -1}, services.Wrap(services.ErrConfiguration, "toolexec", "run", "empty binary name", nil)
	}
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Dir = r.Dir
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGINT)
	}
	cmd.WaitDelay = stopGrace

	stdout := &tailBuffer{limit: maxCapture}
	stderr := &tailBuffer{limit: maxCapture}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	started := time.Now()
	runErr := cmd.Run()
	result := Result{
		ExitCode: exitCode(cmd, runErr),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Elapsed:  time.Since(started),
	}
	if runErr == nil {
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		marker := services.ErrTransient
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return result, services.Wrap(marker, "toolexec", binary, "interrupted", ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return result, services.Wrap(services.ErrExternalTool, "toolexec", binary, fmt.Sprintf("exit status %d", result.ExitCode), runErr)
	}
	if errors.Is(runErr, exec.ErrNotFound) {
		return result, services.Wrap(services.ErrConfiguration, "toolexec", binary, "binary not found", runErr)
	}
	return result, services.Wrap(services.ErrExternalTool, "toolexec", binary, "start failed", runErr)
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

// WithTimeout bounds every call made through next. A non-positive timeout
// returns next unchanged.
func WithTimeout(next Runner, timeout time.Duration) Runner {
	if timeout <= 0 {
		return next
	}
	return RunnerFunc(func(ctx context.Context, binary string, args []string) (Result, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return next.Run(ctx, binary, args)
	})
}

// tailBuffer keeps only the last limit bytes written to it.
type tailBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n >= b.limit {
		b.buf.Reset()
		b.buf.Write(p[n-b.limit:])
		return n, nil
	}
	if over := b.buf.Len() + n - b.limit; over > 0 {
		b.buf.Next(over)
	}
	b.buf.Write(p)
	return n, nil
}

func (b *tailBuffer) Bytes() []byte {
	return append([]byte(nil), b.buf.Bytes()...)
}

func tailLines(text string, n int) string {
	text = strings.TrimRight(text, "\r\n")
	if n <= 0 || text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
