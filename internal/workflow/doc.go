// Package workflow advances queue items through the video pipeline.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and feeds
// items into the registered stage handlers (scripting, narration, footage,
// render) one at a time. Each item picks up at the stage after its last
// finished one, so a retried job never repeats paid LLM or TTS work it
// already stored. The manager also runs preflight checks before each item,
// writes a per-job log file, aggregates queue stats and stage health, and
// emits notifications when a job completes or the queue drains.
//
// Add new lifecycle stages by extending StageSet, updating the queue status
// enums, and registering the transition in ConfigureStages.
package workflow
