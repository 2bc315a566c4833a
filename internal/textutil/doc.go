// Package textutil holds small text helpers shared by the pipeline stages:
// ASCII slugs for output file names, display titles, and token fingerprints
// used to check that a generated script stays on its topic.
package textutil
