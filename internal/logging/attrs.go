package logging

import (
	"context"
	"log/slog"
	"time"

	"habari/internal/services"
)

type Attr = slog.Attr

func Any(key string, value any) Attr                { return slog.Any(key, value) }
func Bool(key string, value bool) Attr              { return slog.Bool(key, value) }
func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }
func Float64(key string, value float64) Attr        { return slog.Float64(key, value) }
func Int(key string, value int) Attr                { return slog.Int(key, value) }
func Int64(key string, value int64) Attr            { return slog.Int64(key, value) }
func String(key string, value string) Attr          { return slog.String(key, value) }

// Error returns the attribute under the "error" key; nil renders as "<nil>".
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Args converts attrs to the variadic form slog's level methods accept.
func Args(attrs ...Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}

func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger tags logger with the component field. A nil logger
// yields a no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// hintsByKind are the operator hints used when a warning or error carries an
// error attribute but no explicit error_hint.
var hintsByKind = map[string]string{
	"configuration": "fix the config file or environment, then restart",
	"validation":    "inspect the input named in the error",
	"not_found":     "verify the URL or path still exists",
	"timeout":       "check network reachability or raise the timeout",
	"external_tool": "rerun the logged command by hand to see its output",
	"transient":     "usually clears on the next cycle",
}

const defaultHint = "check the run log for details"

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact. When an error attribute is present its error_kind is added and
// a missing hint is chosen from that kind.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = annotate(attrs, eventType)
	if !hasKey(attrs, FieldImpact) {
		attrs = append(attrs, String(FieldImpact, "cycle continues with reduced output"))
	}
	logger.Warn(msg, Args(attrs...)...)
}

// ErrorWithContext logs an error carrying event_type and error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	logger.Error(msg, Args(annotate(attrs, eventType)...)...)
}

func annotate(attrs []Attr, eventType string) []Attr {
	if !hasKey(attrs, FieldEventType) {
		attrs = append(attrs, String(FieldEventType, eventType))
	}
	kind := ""
	for _, a := range attrs {
		if a.Key == "error" {
			if err, ok := a.Value.Any().(error); ok {
				kind = services.Classify(err)
			}
			break
		}
	}
	if kind != "" && !hasKey(attrs, FieldErrorKind) {
		attrs = append(attrs, String(FieldErrorKind, kind))
	}
	if !hasKey(attrs, FieldErrorHint) {
		hint, ok := hintsByKind[kind]
		if !ok {
			hint = defaultHint
		}
		attrs = append(attrs, String(FieldErrorHint, hint))
	}
	return attrs
}

func hasKey(attrs []Attr, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}

// NoopHandler discards all log output.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }
func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler        { return NoopHandler{} }
func (NoopHandler) WithGroup(string) slog.Handler             { return NoopHandler{} }
