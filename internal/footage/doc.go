// Package footage is the third workflow stage. It asks the LLM for timed
// search windows over the narration, then runs the clip assignment engine
// (internal/clips) to turn them into a gapless timeline of stock or
// generated clips.
package footage
