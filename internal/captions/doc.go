// Package captions turns aligned narration words into short timed captions
// and writes them as SubRip for the renderer.
package captions
