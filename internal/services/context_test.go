package services_test

import (
	"context"
	"testing"

	"habari/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithCycleID(ctx, "cycle-1")
	ctx = services.WithSegment(ctx, 3)
	ctx = services.WithStage(ctx, "render")
	ctx = services.WithEngine(ctx, "edge:sw-TZ-LughaNeural")

	if id, ok := services.CycleIDFromContext(ctx); !ok || id != "cycle-1" {
		t.Fatalf("unexpected cycle id: %v %v", id, ok)
	}
	if idx, ok := services.SegmentFromContext(ctx); !ok || idx != 3 {
		t.Fatalf("unexpected segment: %v %v", idx, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "render" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if engine, ok := services.EngineFromContext(ctx); !ok || engine != "edge:sw-TZ-LughaNeural" {
		t.Fatalf("unexpected engine: %v %v", engine, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithCycleID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.CycleIDFromContext(ctx); ok {
		t.Fatal("expected no cycle value")
	}
	if _, ok := services.SegmentFromContext(services.WithSegment(context.Background(), 0)); ok {
		t.Fatal("expected no segment value")
	}
}
