package services

import (
	"errors"
	"fmt"
	"strings"

	"scenecast/internal/queue"
)

// Markers classify stage failures. Wrap attaches one to every error a
// service returns.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap returns "<marker>: stage: operation: message[: cause]". Blank parts
// are skipped and a nil marker means ErrTransient.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	detail := joinNonBlank(stage, operation, message)
	if detail == "" {
		detail = "service failure"
	}
	if err == nil {
		return fmt.Errorf("%w: %s", marker, detail)
	}
	return fmt.Errorf("%w: %s: %w", marker, detail, err)
}

// FailureStatus picks the status a failed stage leaves its item in. Bad
// input, missing credentials and missing resources need an operator, so they
// go to review.
func FailureStatus(err error) queue.Status {
	for _, marker := range []error{ErrValidation, ErrConfiguration, ErrNotFound} {
		if errors.Is(err, marker) {
			return queue.StatusReview
		}
	}
	return queue.StatusFailed
}

// IsTransient reports whether err carries ErrTransient or ErrTimeout.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

func joinNonBlank(parts ...string) string {
	kept := parts[:0:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, ": ")
}
