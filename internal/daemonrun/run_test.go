package daemonrun

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"habari/internal/services"
	"habari/internal/testsupport"
)

func TestRunWithoutStreamKeyFailsBeforeCreatingState(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStreamKey(""))

	err := Run(context.Background(), cfg, Options{Once: true})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	entries, err := os.ReadDir(cfg.Paths.LogDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("no run log should be created, found %v", entries)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.StateDir, "history.db")); !os.IsNotExist(err) {
		t.Fatalf("history store should not be opened, stat err = %v", err)
	}
}

func TestEnsureCurrentLogPointer(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "habari-a.log")
	second := filepath.Join(dir, "habari-b.log")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, []byte(p), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first link: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("relink: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, CurrentLogName))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != second {
		t.Fatalf("pointer resolves to %q, want %q", data, second)
	}
}
