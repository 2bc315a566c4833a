// Package config loads, normalizes, and validates scenecast configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PEXELS_KEY and OPENROUTER_API_KEY, optionally sourced from a .env file.
// The Config type centralizes every knob the daemon and CLI need so the
// pipeline packages receive sanitized paths and enum values.
package config
