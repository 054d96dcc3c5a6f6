// Package daemon runs the background watch service. It enforces
// single-instance execution through a file lock, ingests audio dropped
// into the incoming directory, and drains pending runs through the
// pipeline one at a time.
//
// Keep orchestration logic here: ingest filtering and settle tracking live
// in the watcher, per-run execution in the runner, and the daemon focuses
// on startup, shutdown, and lifecycle coordination.
package daemon
