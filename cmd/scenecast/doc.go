// Command scenecast turns a topic into a narrated, captioned short video.
//
// `scenecast generate` renders one video in the foreground. `scenecast run`
// starts the daemon that drains the job queue and serves the HTTP API. The
// queue, status, timeline and config subcommands inspect local state
// directly through the SQLite queue, so they work with or without a daemon.
package main
