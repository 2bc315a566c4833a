// Package edgetts narrates scripts with the edge-tts CLI, run through uvx.
package edgetts
