package staging

import (
	"os"
	"path/filepath"
	"testing"

	"habari/internal/logging"
)

func touch(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCleanCycleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanCycle(dir, "", logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q, got %+v", dir, result)
		}
	}
}

func TestCleanCycleRemovesTransientMediaOnly(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "playlist.txt")
	for _, name := range []string{"segment_0.mp4", "audio_0.mp3", "image_0.jpg", "audio_1.0.part", "x.tmp"} {
		touch(t, filepath.Join(dir, name), 10)
	}
	touch(t, manifest, 5)
	keep := filepath.Join(dir, "notes.md")
	touch(t, keep, 3)
	subdir := filepath.Join(dir, "keep.mp4")
	if err := os.Mkdir(subdir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	result := CleanCycle(dir, manifest, logging.NewNop())

	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Removed) != 6 {
		t.Fatalf("expected 6 removed, got %d: %v", len(result.Removed), result.Removed)
	}
	if result.Bytes != 55 {
		t.Fatalf("expected 55 bytes reclaimed, got %d", result.Bytes)
	}
	left, err := ListTransient(dir)
	if err != nil {
		t.Fatalf("ListTransient: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("transient files remain: %+v", left)
	}
	for _, path := range []string{keep, subdir} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s should survive cleanup: %v", path, err)
		}
	}
}

func TestCleanCycleToleratesMissingManifest(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "segment_3.mp4"), 1)
	result := CleanCycle(dir, filepath.Join(dir, "playlist.txt"), logging.NewNop())
	if len(result.Errors) != 0 || len(result.Removed) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestListTransientReportsSizes(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "audio_2.mp3"), 42)
	touch(t, filepath.Join(dir, "readme"), 1)
	files, err := ListTransient(dir)
	if err != nil {
		t.Fatalf("ListTransient: %v", err)
	}
	if len(files) != 1 || files[0].Name != "audio_2.mp3" || files[0].Size != 42 {
		t.Fatalf("unexpected listing: %+v", files)
	}
}
