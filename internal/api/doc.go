// Package api defines the wire-format types shared by the daemon's HTTP API
// and the CLI. It converts queue items and workflow summaries into
// camelCase JSON DTOs and wraps the queue operations exposed over HTTP
// (submit, retry, remove) so both surfaces report the same per-item
// outcomes.
package api
