package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	pollInterval = 250 * time.Millisecond
	maxLineBytes = 1024 * 1024
)

// TailOptions controls a single Tail call.
type TailOptions struct {
	// Offset < 0 reads the last Limit lines; otherwise reading resumes at Offset.
	Offset int64
	Limit  int
	// Follow waits up to Wait for new lines when none are available.
	Follow bool
	Wait   time.Duration
	Filter Filter
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads matching lines from path. A missing file yields no lines and a
// zero offset so callers can keep polling until the daemon creates it.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	var result TailResult
	if opts.Offset < 0 {
		result.Lines, result.Offset, err = lastLines(path, opts.Limit, opts.Filter)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// Truncated or rotated underneath us.
			offset = 0
		}
		result.Lines, result.Offset, err = readFrom(path, offset, opts.Filter)
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, err
	}
	if opts.Follow && opts.Wait > 0 && len(result.Lines) == 0 {
		return waitForLines(ctx, path, result.Offset, opts.Wait, opts.Filter)
	}
	return result, nil
}

func lastLines(path string, limit int, filter Filter) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]string, limit)
	count, next := 0, 0
	offset, err := scanLines(file, filter, func(line string) {
		ring[next] = line
		next = (next + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	lines := make([]string, count)
	start := 0
	if count == limit {
		start = next
	}
	for i := range count {
		lines[i] = ring[(start+i)%limit]
	}
	return lines, offset, nil
}

func readFrom(path string, offset int64, filter Filter) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}
	var lines []string
	consumed, err := scanLines(file, filter, func(line string) { lines = append(lines, line) })
	if err != nil {
		return nil, 0, err
	}
	return lines, offset + consumed, nil
}

// scanLines feeds complete, matching lines to emit and returns the number of
// bytes consumed. A trailing partial line is left for the next read.
func scanLines(r io.Reader, filter Filter, emit func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineBytes {
			continue
		}
		text := line[:len(line)-1]
		if n := len(text); n > 0 && text[n-1] == '\r' {
			text = text[:n-1]
		}
		if filter.Match(text) {
			emit(text)
		}
	}
}

func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration, filter Filter) (TailResult, error) {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return TailResult{Offset: offset}, ctx.Err()
		case <-deadline.C:
			return TailResult{Offset: offset}, nil
		case <-ticker.C:
			lines, next, err := readFrom(path, offset, filter)
			if err != nil {
				return TailResult{Offset: offset}, err
			}
			offset = next
			if len(lines) > 0 {
				return TailResult{Lines: lines, Offset: offset}, nil
			}
		}
	}
}
