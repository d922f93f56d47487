package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxInfoFields caps the key=value pairs printed beneath an INFO record;
// DEBUG records print everything.
const maxInfoFields = 8

// Keys promoted into the header line or suppressed at INFO level.
var infoHiddenKeys = map[string]struct{}{
	FieldCycleID:   {},
	FieldSegment:   {},
	FieldStage:     {},
	FieldEngine:    {},
	FieldEventType: {},
}

type prettyHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	flattenAttrs(&kvs, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})
	kvs = dedupeKVsByKey(kvs)

	var component, cycleID, segment, stage, engine string
	fields := make([]kv, 0, len(kvs))
	for _, entry := range kvs {
		switch entry.key {
		case FieldComponent:
			component = entry.value.String()
			continue
		case FieldCycleID:
			cycleID = entry.value.String()
		case FieldSegment:
			segment = entry.value.String()
		case FieldStage:
			stage = entry.value.String()
		case FieldEngine:
			engine = entry.value.String()
		}
		fields = append(fields, entry)
	}

	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var buf bytes.Buffer
	buf.Grow(256 + len(fields)*32)
	buf.WriteString(timestamp.Local().Format("2006-01-02 15:04:05"))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	if component != "" {
		buf.WriteString(" [")
		buf.WriteString(component)
		buf.WriteByte(']')
	}
	if subject := composeSubject(cycleID, segment, stage, engine); subject != "" {
		buf.WriteByte(' ')
		buf.WriteString(subject)
	}
	buf.WriteString(": ")
	buf.WriteString(message)
	if h.addSource && record.PC != 0 {
		if src := record.Source(); src != nil && src.File != "" {
			buf.WriteString(" [")
			buf.WriteString(filepath.Base(src.File))
			buf.WriteByte(':')
			buf.WriteString(strconv.Itoa(src.Line))
			buf.WriteByte(']')
		}
	}
	buf.WriteByte('\n')

	debug := record.Level < slog.LevelInfo
	shown, hidden := 0, 0
	for _, entry := range fields {
		if !debug {
			if _, skip := infoHiddenKeys[entry.key]; skip {
				continue
			}
			if shown >= maxInfoFields {
				hidden++
				continue
			}
		}
		if shown == 0 {
			buf.WriteString("   ")
		}
		buf.WriteByte(' ')
		buf.WriteString(entry.key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(entry.value))
		shown++
	}
	if hidden > 0 {
		fmt.Fprintf(&buf, " (+%d more)", hidden)
	}
	if shown > 0 || hidden > 0 {
		buf.WriteByte('\n')
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

// composeSubject renders "cycle 1a2b3c4d #2 tts/edge:sw-KE-ZuriNeural". The
// cycle id is cut to its first eight characters.
func composeSubject(cycleID, segment, stage, engine string) string {
	var b strings.Builder
	if cycleID = strings.TrimSpace(cycleID); cycleID != "" {
		b.WriteString("cycle ")
		b.WriteString(cycleID[:min(len(cycleID), 8)])
	}
	if segment = strings.TrimSpace(segment); segment != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("#" + segment)
	}
	if stage = strings.TrimSpace(stage); stage != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(stage)
		if engine = strings.TrimSpace(engine); engine != "" {
			b.WriteString("/" + engine)
		}
	}
	return b.String()
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *prettyHandler) clone() *prettyHandler {
	return &prettyHandler{
		mu:        h.mu,
		writer:    h.writer,
		level:     h.level,
		addSource: h.addSource,
		attrs:     append([]slog.Attr(nil), h.attrs...),
		groups:    append([]string(nil), h.groups...),
	}
}

type kv struct {
	key   string
	value slog.Value
}

// dedupeKVsByKey keeps the first position of each key with its last value.
func dedupeKVsByKey(attrs []kv) []kv {
	if len(attrs) < 2 {
		return attrs
	}
	positions := make(map[string]int, len(attrs))
	deduped := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		if attr.key == "" {
			continue
		}
		if pos, ok := positions[attr.key]; ok {
			deduped[pos].value = attr.value
			continue
		}
		positions[attr.key] = len(deduped)
		deduped = append(deduped, attr)
	}
	return deduped
}

func flattenAttrs(dst *[]kv, prefix []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		flattenAttr(dst, prefix, attr)
	}
}

func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(append([]string(nil), prefix...), attr.Key)
		}
		flattenAttrs(dst, next, attr.Value.Group())
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(append(append([]string(nil), prefix...), key), ".")
	}
	*dst = append(*dst, kv{key: key, value: attr.Value})
}

func formatValue(value slog.Value) string {
	switch value.Kind() {
	case slog.KindString:
		s := value.String()
		if needsQuotes(s) {
			return strconv.Quote(s)
		}
		return s
	case slog.KindDuration:
		return value.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return value.Time().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(value.Any())
	default:
		return value.String()
	}
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' || r == '"' {
			return true
		}
	}
	return false
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
