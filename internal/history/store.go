package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"habari/internal/config"
)

// FileName is the database file created inside the state directory.
const FileName = "history.db"

// Store manages cycle history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database in cfg's state dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.StateDir, FileName))
}

// OpenPath opens the database at dbPath and applies the schema.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection; one connection keeps them in force.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginCycle inserts a running cycle.
func (s *Store) BeginCycle(ctx context.Context, id string, started time.Time) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("cycle id is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cycles (id, status, started_at) VALUES (?, ?, ?)`,
		id, StatusRunning, formatTime(started),
	)
	if err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}
	return nil
}

// RecordSegment stores one item outcome. Recording the same index twice
// replaces the earlier row.
func (s *Store) RecordSegment(ctx context.Context, seg Segment) error {
	if seg.CreatedAt.IsZero() {
		seg.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO segments (
            cycle_id, idx, title, source, status, stage, engine,
            duration_ms, bytes, error_message, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(cycle_id, idx) DO UPDATE SET
            title = excluded.title, source = excluded.source, status = excluded.status,
            stage = excluded.stage, engine = excluded.engine, duration_ms = excluded.duration_ms,
            bytes = excluded.bytes, error_message = excluded.error_message, created_at = excluded.created_at`,
		seg.CycleID,
		seg.Index,
		nullableString(seg.Title),
		nullableString(seg.Source),
		seg.Status,
		nullableString(seg.Stage),
		nullableString(seg.Engine),
		seg.Duration.Milliseconds(),
		seg.Bytes,
		nullableString(seg.Error),
		formatTime(seg.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("record segment: %w", err)
	}
	return nil
}

// FinishCycle stores the final counts and status of a cycle started with BeginCycle.
func (s *Store) FinishCycle(ctx context.Context, c Cycle) error {
	if c.FinishedAt.IsZero() {
		c.FinishedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE cycles
         SET status = ?, finished_at = ?, items = ?, rendered = ?, failed = ?,
             playlist_ms = ?, error_message = ?
         WHERE id = ?`,
		c.Status,
		formatTime(c.FinishedAt),
		c.Items,
		c.Rendered,
		c.Failed,
		c.PlaylistDuration.Milliseconds(),
		nullableString(c.Error),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("finish cycle: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish cycle: unknown cycle %q", c.ID)
	}
	return nil
}

const cycleColumns = "id, status, started_at, finished_at, items, rendered, failed, playlist_ms, error_message"

// RecentCycles returns up to limit cycles, newest first.
func (s *Store) RecentCycles(ctx context.Context, limit int) ([]Cycle, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cycleColumns+` FROM cycles ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

// GetCycle fetches a cycle by id. It returns nil when no cycle matches.
func (s *Store) GetCycle(ctx context.Context, id string) (*Cycle, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cycleColumns+` FROM cycles WHERE id = ?`, id)
	c, err := scanCycle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cycle: %w", err)
	}
	return &c, nil
}

// Segments returns the recorded items of a cycle in index order.
func (s *Store) Segments(ctx context.Context, cycleID string) ([]Segment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cycle_id, idx, title, source, status, stage, engine, duration_ms, bytes, error_message, created_at
         FROM segments WHERE cycle_id = ? ORDER BY idx`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segments []Segment
	for rows.Next() {
		var (
			seg                               Segment
			title, source, stage, engine, msg sql.NullString
			status, createdRaw                string
			durationMS                        int64
		)
		if err := rows.Scan(&seg.CycleID, &seg.Index, &title, &source, &status, &stage, &engine,
			&durationMS, &seg.Bytes, &msg, &createdRaw); err != nil {
			return nil, err
		}
		seg.Title = title.String
		seg.Source = source.String
		seg.Status = SegmentStatus(status)
		seg.Stage = stage.String
		seg.Engine = engine.String
		seg.Duration = time.Duration(durationMS) * time.Millisecond
		seg.Error = msg.String
		if created, err := parseTimeString(createdRaw); err == nil {
			seg.CreatedAt = created
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// MarkInterrupted closes cycles left running by a previous process.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cycles SET status = ?, finished_at = ?, error_message = COALESCE(error_message, ?)
         WHERE status = ?`,
		StatusInterrupted, formatTime(time.Now()), "process exited before cycle finished", StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted cycles: %w", err)
	}
	return res.RowsAffected()
}

// Summarize counts every recorded cycle by status.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM cycles GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, err
		}
		summary.Total += count
		switch status {
		case StatusPublished:
			summary.Published += count
		case StatusEmpty:
			summary.Empty += count
		case StatusFailed:
			summary.Failed += count
		case StatusInterrupted:
			summary.Interrupted += count
		case StatusRunning:
			summary.Running += count
		}
	}
	return summary, rows.Err()
}

// Prune deletes cycles started before cutoff along with their segments.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cycles WHERE started_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune cycles: %w", err)
	}
	return res.RowsAffected()
}
