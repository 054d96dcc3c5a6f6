// Package config loads, normalizes, and validates Scribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HF_TOKEN. The Config type centralizes every knob the daemon and CLI need,
// from engine model selection to artifact directories.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical choice values, and clear validation errors.
package config
