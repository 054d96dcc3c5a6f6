// Package pipeline runs the transcription stage sequence against one audio
// input: transcribe, then optional word-level alignment, then optional
// speaker diarization. Stages operate on a shared Job and communicate
// exclusively through its transcript document.
//
// Inference engines are consumed through narrow loader/capability contracts
// so providers can be substituted without touching stage logic. The Cache
// holds at most one loaded transcription model and reloads only when the
// requesting key (model, device, compute type) changes.
package pipeline
