package logging

import (
	"context"
	"log/slog"

	"habari/internal/services"
)

// Structured field keys shared by every habari log line.
const (
	FieldComponent = "component"
	FieldCycleID   = "cycle_id"
	// FieldSegment is the 1-based segment index within a cycle.
	FieldSegment   = "segment"
	FieldStage     = "stage"
	FieldEngine    = "engine"
	FieldEventType = "event_type"
	// FieldErrorHint suggests the operator's next step.
	FieldErrorHint = "error_hint"
	// FieldImpact states what a warning costs the broadcast.
	FieldImpact    = "impact"
	FieldErrorKind = "error_kind"
)

// ContextFields returns the cycle, segment, stage and engine annotations
// carried by ctx, in that order.
func ContextFields(ctx context.Context) []slog.Attr {
	var fields []slog.Attr
	if id, ok := services.CycleIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCycleID, id))
	}
	if idx, ok := services.SegmentFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldSegment, idx))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if engine, ok := services.EngineFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldEngine, engine))
	}
	return fields
}

// WithContext returns logger extended with ContextFields(ctx).
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
