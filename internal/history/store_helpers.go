package history

import (
	"database/sql"
	"errors"
	"time"
)

func scanCycle(scanner interface{ Scan(dest ...any) error }) (Cycle, error) {
	var (
		c           Cycle
		status      string
		startedRaw  string
		finishedRaw sql.NullString
		playlistMS  int64
		errorMsg    sql.NullString
	)
	if err := scanner.Scan(&c.ID, &status, &startedRaw, &finishedRaw, &c.Items, &c.Rendered,
		&c.Failed, &playlistMS, &errorMsg); err != nil {
		return Cycle{}, err
	}
	c.Status = Status(status)
	c.PlaylistDuration = time.Duration(playlistMS) * time.Millisecond
	c.Error = errorMsg.String
	if started, err := parseTimeString(startedRaw); err == nil {
		c.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			c.FinishedAt = finished
		}
	}
	return c, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// formatTime uses a fixed-width layout so lexical order matches time order.
func formatTime(value time.Time) string {
	return value.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
