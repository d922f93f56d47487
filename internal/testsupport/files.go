package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"habari/internal/config"
)

// WriteSized creates path holding size filler bytes, creating parent
// directories. Media size checks only look at the byte count, so the content
// is arbitrary.
func WriteSized(t testing.TB, path string, size int64) string {
	t.Helper()
	if size < 0 {
		size = 0
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// SeedWorkDir writes the named files into cfg's work directory, as a crashed
// or in-flight cycle would leave them, and returns their paths sorted.
func SeedWorkDir(t testing.TB, cfg *config.Config, sizes map[string]int64) []string {
	t.Helper()
	paths := make([]string, 0, len(sizes))
	for name, size := range sizes {
		paths = append(paths, WriteSized(t, filepath.Join(cfg.Paths.WorkDir, name), size))
	}
	sort.Strings(paths)
	return paths
}
