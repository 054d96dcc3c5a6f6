// Package transcript defines the document model shared by the pipeline
// stages and exporters: segments, words, and speaker labels, plus the merge
// logic that folds diarization turns into an aligned transcript.
package transcript
