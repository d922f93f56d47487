// Package playlist keeps the cycle's rendered segments and writes them as an
// ffmpeg concat-demuxer manifest.
package playlist

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"habari/internal/fileutil"
	"habari/internal/render"
)

// ErrEmpty is returned when a manifest with no segments would be written.
var ErrEmpty = errors.New("playlist has no segments")

// Manifest holds rendered segments keyed by their index within the cycle.
// Segments are kept in fetch order regardless of the order they were added.
type Manifest struct {
	segments map[int]render.Segment
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{segments: make(map[int]render.Segment)}
}

// Add records seg, replacing any earlier segment with the same index.
func (m *Manifest) Add(seg render.Segment) {
	m.segments[seg.Index] = seg
}

// Len reports how many segments the manifest holds.
func (m *Manifest) Len() int {
	return len(m.segments)
}

// Entries returns the segments ordered by index.
func (m *Manifest) Entries() []render.Segment {
	out := make([]render.Segment, 0, len(m.segments))
	for _, seg := range m.segments {
		out = append(out, seg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Duration sums the segment durations.
func (m *Manifest) Duration() time.Duration {
	var total time.Duration
	for _, seg := range m.segments {
		total += seg.Duration
	}
	return total
}

// Paths returns the segment file paths in playback order.
func (m *Manifest) Paths() []string {
	entries := m.Entries()
	paths := make([]string, 0, len(entries))
	for _, seg := range entries {
		paths = append(paths, seg.Path)
	}
	return paths
}

// Render formats the manifest in concat-demuxer syntax, one
// "file '<path>'" line per segment.
func (m *Manifest) Render() string {
	var b strings.Builder
	for _, seg := range m.Entries() {
		b.WriteString("file ")
		b.WriteString(Quote(seg.Path))
		b.WriteByte('\n')
	}
	return b.String()
}

// Quote wraps path in single quotes. Embedded quotes close the string, add an
// escaped quote, and reopen it, as the concat demuxer expects.
func Quote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

// Write replaces the manifest file at path. An empty manifest removes any
// previous file and returns ErrEmpty without writing.
func Write(path string, m *Manifest) error {
	if err := fileutil.RemoveIfExists(path); err != nil {
		return fmt.Errorf("remove previous manifest: %w", err)
	}
	if m == nil || m.Len() == 0 {
		return ErrEmpty
	}
	for _, seg := range m.Entries() {
		if !filepath.IsAbs(seg.Path) {
			return fmt.Errorf("segment %d: path %q is not absolute", seg.Index, seg.Path)
		}
	}
	if err := fileutil.WriteFileAtomic(path, []byte(m.Render()), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
