// Package clips assigns background footage to a narrated timeline.
//
// A run flows through four pieces:
//
//   - Builder validates the query windows produced by a WindowExtractor,
//     sorts them and merges windows closer than Options.MinWindowGap.
//   - Resolver searches a FootageSearcher term by term, keeps candidates
//     with the exact orientation aspect ratio above the resolution floor,
//     ranks them by distance from the target duration and claims the first
//     rendition whose source clip is not already in the run's UsedMediaSet.
//   - Synthesizer handles resolver misses by generating one image per term
//     and encoding them into a clip through a FrameEncoder.
//   - Assembler runs the above in window order and applies RepairGaps, which
//     stretches neighbouring footage over unresolved windows so the timeline
//     covers [0, total) with no nulls.
//
// Per-term provider and generation failures are retried, logged and skipped.
// Only malformed extractor output, a run where nothing resolved, or context
// cancellation is returned to the caller.
package clips
