// Package logging assembles structured slog loggers and formatting helpers used
// across scenecast.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code can tag log lines
// with queue item IDs, stages, and correlation IDs. Warnings and decisions go
// through WarnWithContext and DecisionAttrs so every non-fatal event carries
// an event_type that can be filtered later.
package logging
