// Package whisperx runs WhisperX through uvx to recover word-level timings
// for generated narration.
//
// Service.PrepareAudio converts the narration to mono 16kHz WAV with ffmpeg,
// Service.Align runs WhisperX and returns TimedWords, which the captions
// package groups into caption segments. Commands go through an injectable
// runner so tests never start Python.
package whisperx
