// Package export renders transcript documents into their on-disk artifact
// formats: JSON, plain text, SRT, and VTT. It owns the subtitle timestamp
// formatting rules and the cue sanitization applied to segment text.
package export
