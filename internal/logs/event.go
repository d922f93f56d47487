package logs

import (
	"encoding/json"
	"strings"
	"time"
)

// Event is the subset of a JSON run-log record the CLI renders.
type Event struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	CycleID   string
	Segment   int
	Stage     string
	EventType string
	Error     string
	Raw       string
}

type rawEvent struct {
	TS        string `json:"ts"`
	Level     string `json:"level"`
	Msg       string `json:"msg"`
	Component string `json:"component"`
	CycleID   string `json:"cycle_id"`
	Segment   int    `json:"segment"`
	Stage     string `json:"stage"`
	EventType string `json:"event_type"`
	Error     string `json:"error"`
}

// ParseEvent decodes one JSON run-log line. Lines that are not JSON objects
// report false.
func ParseEvent(line string) (Event, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return Event{}, false
	}
	var raw rawEvent
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return Event{}, false
	}
	ev := Event{
		Level:     strings.ToLower(raw.Level),
		Message:   raw.Msg,
		Component: raw.Component,
		CycleID:   raw.CycleID,
		Segment:   raw.Segment,
		Stage:     raw.Stage,
		EventType: raw.EventType,
		Error:     raw.Error,
		Raw:       trimmed,
	}
	if ts, err := time.Parse(time.RFC3339, raw.TS); err == nil {
		ev.Time = ts
	}
	return ev, true
}

// Filter selects run-log lines. Zero fields match everything.
type Filter struct {
	// MinLevel is one of debug, info, warn, error.
	MinLevel  string
	CycleID   string
	EventType string
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "warning": 2, "error": 3}

// Empty reports whether the filter matches every line.
func (f Filter) Empty() bool {
	return f.MinLevel == "" && f.CycleID == "" && f.EventType == ""
}

// Match reports whether line passes the filter. Non-JSON lines only pass an
// empty filter.
func (f Filter) Match(line string) bool {
	if f.Empty() {
		return true
	}
	ev, ok := ParseEvent(line)
	if !ok {
		return false
	}
	if f.MinLevel != "" {
		want, known := levelRank[strings.ToLower(f.MinLevel)]
		if known && levelRank[ev.Level] < want {
			return false
		}
	}
	if f.CycleID != "" && !strings.HasPrefix(ev.CycleID, f.CycleID) {
		return false
	}
	if f.EventType != "" && ev.EventType != f.EventType {
		return false
	}
	return true
}
