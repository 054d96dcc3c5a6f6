package transcript

import "fmt"

// Word is a single aligned token with optional confidence and speaker label.
type Word struct {
	Word    string  `json:"word"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Score   float64 `json:"score,omitempty"`
	Speaker string  `json:"speaker,omitempty"`
}

// Char is a single aligned character, present only when character-level
// alignments were requested.
type Char struct {
	Char  string  `json:"char"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Score float64 `json:"score,omitempty"`
}

// Segment is a span of speech with its transcription and optional word-level
// detail.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
	Words   []Word  `json:"words,omitempty"`
	Chars   []Char  `json:"chars,omitempty"`
}

// Document is the transcript produced by a pipeline run. Stages augment it in
// place: transcription seeds the segments, alignment refines timestamps and
// attaches words, diarization attaches speaker labels.
type Document struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language,omitempty"`
}

// Validate checks the structural invariants every stage must preserve:
// non-negative timestamps, end at or after start, and segments ordered by
// start time.
func (d *Document) Validate() error {
	var prev float64
	for i, seg := range d.Segments {
		if seg.Start < 0 {
			return fmt.Errorf("segment %d: negative start %f", i, seg.Start)
		}
		if seg.End < seg.Start {
			return fmt.Errorf("segment %d: end %f before start %f", i, seg.End, seg.Start)
		}
		if seg.Start < prev {
			return fmt.Errorf("segment %d: start %f out of order", i, seg.Start)
		}
		prev = seg.Start
	}
	return nil
}
