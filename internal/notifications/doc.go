// Package notifications pushes job outcomes to ntfy.
//
// NewService returns a no-op Service when no topic is configured, so callers
// publish unconditionally. Completion and failure messages can be muted
// independently through [notifications] completed/failed.
package notifications
