// Package render turns an assembled clip timeline into the final video.
//
// It owns every ffmpeg invocation that produces video: the frame encoder the
// fallback synthesizer uses for generated clips, and the composer that
// downloads stock footage, renders one exact-length segment per timeline
// entry, concatenates them, muxes the narration and optionally burns the
// captions in. The stage handler publishes the result to the output
// directory and records the path on the queue item.
package render
