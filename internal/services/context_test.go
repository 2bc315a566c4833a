package services_test

import (
	"context"
	"testing"

	"scenecast/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithItemID(ctx, 42)
	ctx = services.WithStage(ctx, "footage")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.ItemIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected item id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "footage" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}

func TestScopeDoesNotLeakToParent(t *testing.T) {
	parent := services.WithStage(context.Background(), "scripting")
	child := services.WithItemID(services.WithStage(parent, "render"), 0)

	if stage, _ := services.StageFromContext(parent); stage != "scripting" {
		t.Fatalf("parent stage changed to %q", stage)
	}
	if _, ok := services.ItemIDFromContext(parent); ok {
		t.Fatal("parent gained an item id")
	}
	if id, ok := services.ItemIDFromContext(child); !ok || id != 0 {
		t.Fatalf("explicit zero id lost: %v %v", id, ok)
	}
	if stage, _ := services.StageFromContext(child); stage != "render" {
		t.Fatalf("child stage %q", stage)
	}
}
