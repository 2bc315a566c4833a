// Package narration is the second workflow stage: it speaks the script with
// edge-tts, aligns the audio with WhisperX and groups the word timings into
// captions. The measured audio length becomes the timeline total that the
// footage stage must cover.
package narration
