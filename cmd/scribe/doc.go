// Package main hosts the scribe CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// one-shot transcriptions, the watch daemon, run ledger inspection and
// maintenance, environment diagnostics, and configuration scaffolding.
// It centralizes configuration resolution and logging setup so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the
// internal packages first, then surface it through dedicated commands
// or flags here. That separation keeps the CLI declarative while the
// heavy lifting lives in reusable pipeline components.
package main
