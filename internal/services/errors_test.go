package services_test

import (
	"errors"
	"strings"
	"testing"

	"scenecast/internal/queue"
	"scenecast/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "render", "concat", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"render", "concat", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestFailureStatusMapping(t *testing.T) {
	validationErr := services.Wrap(services.ErrValidation, "footage", "windows", "invalid", nil)
	if status := services.FailureStatus(validationErr); status != queue.StatusReview {
		t.Fatalf("expected review for validation error, got %s", status)
	}

	transientErr := services.Wrap(services.ErrTransient, "render", "download", "fetch failed", errors.New("io"))
	if status := services.FailureStatus(transientErr); status != queue.StatusFailed {
		t.Fatalf("expected failed for transient error, got %s", status)
	}

	if status := services.FailureStatus(nil); status != queue.StatusFailed {
		t.Fatalf("expected failed for nil error, got %s", status)
	}
}

func TestIsTransient(t *testing.T) {
	if !services.IsTransient(services.Wrap(services.ErrTimeout, "pexels", "search", "slow", nil)) {
		t.Fatal("expected timeout to be transient")
	}
	if services.IsTransient(services.Wrap(services.ErrValidation, "pexels", "search", "bad", nil)) {
		t.Fatal("expected validation error to be permanent")
	}
}
