// Package daemon owns the long-running scenecast process.
//
// It holds the single-instance flock, starts and stops the workflow
// manager, fails in-flight jobs on shutdown and serves the HTTP job API.
// Stage logic lives in the stage packages; this package only coordinates
// lifecycle.
package daemon
