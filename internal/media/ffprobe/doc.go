// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The narration stage uses it to measure the voiceover (the timeline's total
// duration) and the render stage to validate the finished video.
package ffprobe
