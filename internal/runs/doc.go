// Package runs persists transcription runs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, stuck-run recovery, and status transitions. Each run records the
// audio source, the model configuration it was processed with, and the
// artifacts the exporter produced, so the CLI and the status API can report
// history without re-reading output directories.
//
// The database is treated as a working ledger for in-flight and recent jobs
// rather than a long-term archive. Schema changes bump the version in
// schema.go; users clear the database to adopt the new schema.
package runs
