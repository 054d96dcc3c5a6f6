package pipeline

import (
	"scribe/internal/transcript"
)

// Job is the mutable state one pipeline execution threads through its
// stages. Stages read and write the Document; everything else is bookkeeping
// for the caller.
type Job struct {
	RunID     int64
	Token     string
	AudioPath string
	Options   Options

	// Document is populated by the transcribe stage and refined in place
	// by the stages that follow.
	Document *transcript.Document

	// DetectedLanguage is the transcription engine's own language verdict,
	// kept separate from the resolved Language for reporting.
	DetectedLanguage string

	// Language is the resolved language all downstream stages use:
	// explicit request, else detection, else the fixed default.
	Language string

	// Diarized reports whether speaker labels were merged into Document.
	Diarized bool
}

// SegmentCount returns the number of segments in the current document.
func (j *Job) SegmentCount() int {
	if j == nil || j.Document == nil {
		return 0
	}
	return len(j.Document.Segments)
}
