package services

import "context"

type contextKey int

const (
	cycleIDKey contextKey = iota
	segmentKey
	stageKey
	engineKey
)

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithCycleID annotates ctx with the broadcast cycle identifier.
func WithCycleID(ctx context.Context, id string) context.Context {
	return withString(ctx, cycleIDKey, id)
}

// CycleIDFromContext extracts the cycle identifier if present.
func CycleIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, cycleIDKey)
}

// WithSegment annotates ctx with the 1-based segment index within a cycle.
// Non-positive indexes leave ctx unchanged.
func WithSegment(ctx context.Context, index int) context.Context {
	if index <= 0 {
		return ctx
	}
	return context.WithValue(ctx, segmentKey, index)
}

func SegmentFromContext(ctx context.Context) (int, bool) {
	if ctx == nil {
		return 0, false
	}
	v, ok := ctx.Value(segmentKey).(int)
	return v, ok
}

// WithStage annotates ctx with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, stageKey)
}

// WithEngine annotates ctx with the speech engine currently being attempted.
func WithEngine(ctx context.Context, engine string) context.Context {
	return withString(ctx, engineKey, engine)
}

func EngineFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, engineKey)
}
