// Package queue persists short-video jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// Each item walks pending → scripting → scripted → narrating → narrated →
// sourcing → sourced → rendering → completed, with failed and review as the
// terminal error states. Stage artifacts (script, audio, captions, search
// windows, clip timeline) are stored on the row so RetryFailed can resume a
// job from the last stage that finished.
//
// The Store also owns heartbeat tracking and stuck-item recovery: processing
// statuses roll back to the ready status their stage consumes.
//
// The database is transient storage for in-flight jobs. Schema changes bump
// schemaVersion in schema.go; users delete the database to adopt them.
package queue
