// Package pexels searches the Pexels video API for stock footage.
//
// Client implements clips.FootageSearcher. Response fields that Pexels may
// omit (dimensions, duration, the file list) stay optional through the
// mapping into clips.CandidateClip; filtering happens in the resolver.
// Rate limiting (429), request timeouts and server errors are tagged with
// services.ErrTransient so the resolver retries them.
package pexels
