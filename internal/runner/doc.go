// Package runner executes transcription runs end to end. It owns the run
// ledger lifecycle around the pipeline: probing source audio, persisting
// stage transitions, exporting documents, and publishing notifications.
package runner
