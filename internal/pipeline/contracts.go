package pipeline

import (
	"context"

	"scribe/internal/transcript"
)

// ModelKey identifies one loadable transcription model configuration.
// Two keys are interchangeable exactly when all three fields match.
type ModelKey struct {
	Model       string
	Device      string
	ComputeType string
}

// TranscribeRequest carries the per-invocation parameters for the
// transcription capability. Language may be empty to request detection.
type TranscribeRequest struct {
	AudioPath string
	Language  string
	Task      string
	BatchSize int
	ChunkSize int
}

// TranscribeResult is the normalized output of one transcription call.
// Language echoes the requested language or reports the detected one.
type TranscribeResult struct {
	Document *transcript.Document
	Language string
}

// Model is a loaded transcription model instance.
type Model interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (TranscribeResult, error)
	Close() error
}

// ModelLoader materializes transcription models on demand.
type ModelLoader interface {
	Load(ctx context.Context, key ModelKey) (Model, error)
}

// AlignRequest carries one alignment invocation. The document is read as
// input; implementations return a refined copy rather than mutating it.
type AlignRequest struct {
	Document             *transcript.Document
	AudioPath            string
	InterpolateMethod    string
	ReturnCharAlignments bool
}

// Aligner refines segment and word timestamps for one language.
type Aligner interface {
	Align(ctx context.Context, req AlignRequest) (*transcript.Document, error)
	Close() error
}

// AlignerLoader materializes alignment models. The model override, when
// non-empty, replaces the language-default alignment model.
type AlignerLoader interface {
	LoadAligner(ctx context.Context, language, modelOverride string) (Aligner, error)
}

// DiarizeRequest carries one diarization invocation. Zero speaker bounds
// leave the corresponding side unbounded.
type DiarizeRequest struct {
	AudioPath   string
	MinSpeakers int
	MaxSpeakers int
}

// Diarizer segments audio into speaker turns.
type Diarizer interface {
	Diarize(ctx context.Context, req DiarizeRequest) ([]transcript.SpeakerTurn, error)
	Close() error
}

// DiarizerLoader materializes the diarization capability, including any
// gated-model credential handling.
type DiarizerLoader interface {
	LoadDiarizer(ctx context.Context) (Diarizer, error)
}
