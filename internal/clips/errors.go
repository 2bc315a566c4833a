package clips

import (
	"fmt"

	"scenecast/internal/services"
)

// ProviderError reports a footage search that kept failing after retries.
// The resolver absorbs it and moves to the next term.
type ProviderError struct {
	Term     string
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("footage search %q failed after %d attempt(s): %v", e.Term, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// MalformedWindowError reports extractor output that cannot be used. Index is
// the position in the extractor output, or -1 when the output as a whole is
// unusable.
type MalformedWindowError struct {
	Index  int
	Start  float64
	End    float64
	Reason string
}

func (e *MalformedWindowError) Error() string {
	if e.Index < 0 {
		return "malformed query windows: " + e.Reason
	}
	return fmt.Sprintf("malformed query window %d [%.2f-%.2f]: %s", e.Index, e.Start, e.End, e.Reason)
}

func (e *MalformedWindowError) Is(target error) bool { return target == services.ErrValidation }

// NoUsableMediaError reports that no window produced footage, so there is
// nothing to stretch over the timeline.
type NoUsableMediaError struct {
	Start   float64
	End     float64
	Windows int
}

func (e *NoUsableMediaError) Error() string {
	return fmt.Sprintf("no usable media for any of %d window(s) in [%.2f-%.2f]", e.Windows, e.Start, e.End)
}

func (e *NoUsableMediaError) Is(target error) bool { return target == services.ErrNotFound }

// PartialFrameError reports a synthesized clip built from fewer frames than
// terms. It is logged, never returned.
type PartialFrameError struct {
	Start     float64
	End       float64
	Requested int
	Produced  int
}

func (e *PartialFrameError) Error() string {
	return fmt.Sprintf("window [%.2f-%.2f]: generated %d of %d frame(s)", e.Start, e.End, e.Produced, e.Requested)
}

// windowError attaches the window range to a fatal error, typically
// cancellation.
func windowError(w QueryWindow, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("window %s: %w", w, err)
}
