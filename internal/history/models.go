package history

import "time"

// Status represents the outcome of a cycle.
type Status string

const (
	StatusRunning     Status = "running"
	StatusPublished   Status = "published"
	StatusEmpty       Status = "empty"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// SegmentStatus represents the outcome of one item within a cycle.
type SegmentStatus string

const (
	SegmentRendered SegmentStatus = "rendered"
	SegmentDropped  SegmentStatus = "dropped"
)

// Cycle is a persisted broadcast cycle.
type Cycle struct {
	ID               string
	Status           Status
	StartedAt        time.Time
	FinishedAt       time.Time
	Items            int
	Rendered         int
	Failed           int
	PlaylistDuration time.Duration
	Error            string
}

// Elapsed returns the wall time of a finished cycle.
func (c Cycle) Elapsed() time.Duration {
	if c.FinishedAt.IsZero() || c.StartedAt.IsZero() {
		return 0
	}
	return c.FinishedAt.Sub(c.StartedAt)
}

// Segment is a persisted per-item outcome.
type Segment struct {
	CycleID   string
	Index     int
	Title     string
	Source    string
	Status    SegmentStatus
	Stage     string
	Engine    string
	Duration  time.Duration
	Bytes     int64
	Error     string
	CreatedAt time.Time
}

// Summary aggregates cycle counts by status.
type Summary struct {
	Total       int
	Published   int
	Empty       int
	Failed      int
	Interrupted int
	Running     int
}
