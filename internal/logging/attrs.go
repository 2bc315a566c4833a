package logging

import "log/slog"

// Attr is slog.Attr; the constructors below keep call sites free of a
// second logging import.
type Attr = slog.Attr

var (
	Any      = slog.Any
	Bool     = slog.Bool
	Duration = slog.Duration
	Float64  = slog.Float64
	Int      = slog.Int
	Int64    = slog.Int64
	String   = slog.String
)

// Error records err under "error"; a nil error is written as "<nil>".
func Error(err error) Attr {
	if err == nil {
		return String("error", "<nil>")
	}
	return Any("error", err)
}

// Args adapts attrs to the ...any parameter of slog.Logger methods.
func Args(attrs ...Attr) []any {
	out := make([]any, len(attrs))
	for i := range attrs {
		out[i] = attrs[i]
	}
	return out
}

// NewNop returns a logger that drops everything.
func NewNop() *slog.Logger { return slog.New(slog.DiscardHandler) }

// NewComponentLogger tags logger (or a no-op logger when nil) with component.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// WarnWithContext logs a warning that always names its event type, a hint
// and the impact on the job; callers may override the defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	logger.Warn(msg, Args(fillMissing(attrs,
		String(FieldEventType, eventType),
		String(FieldErrorHint, "check logs for details"),
		String(FieldImpact, "operation completed with warnings"),
	)...)...)
}

// ErrorWithContext is WarnWithContext at error level, without impact.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	logger.Error(msg, Args(fillMissing(attrs,
		String(FieldEventType, eventType),
		String(FieldErrorHint, "check logs for details"),
	)...)...)
}

// DecisionAttrs describes a choice the pipeline made, e.g. which clip
// provider served a window.
func DecisionAttrs(decisionType, result, reason string) []Attr {
	return []Attr{
		String("decision_type", decisionType),
		String("decision_result", result),
		String("decision_reason", reason),
	}
}

// fillMissing appends each default whose key attrs does not already use.
func fillMissing(attrs []Attr, defaults ...Attr) []Attr {
	seen := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		seen[a.Key] = true
	}
	for _, d := range defaults {
		if !seen[d.Key] {
			attrs = append(attrs, d)
		}
	}
	return attrs
}
