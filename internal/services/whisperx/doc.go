// Package whisperx runs WhisperX inference through persistent worker
// subprocesses managed with uvx.
//
// Each capability (transcription, alignment, diarization) is one Python
// worker that loads its model once, reports readiness, and then answers
// JSON-line requests over stdin/stdout until closed. Closing a worker is
// how the pipeline's model cache actually releases model memory.
//
// Worker stderr is captured to per-run tool logs; stdout noise that is not
// part of the protocol is tolerated and logged.
package whisperx
