package transcript_test

import (
	"testing"

	"scribe/internal/transcript"
)

func TestAssignSpeakersPicksLargestOverlap(t *testing.T) {
	doc := &transcript.Document{
		Segments: []transcript.Segment{
			{Start: 0, End: 4, Text: "mostly alice"},
			{Start: 4, End: 8, Text: "mostly bob"},
		},
	}
	turns := []transcript.SpeakerTurn{
		{Start: 0, End: 3, Speaker: "SPEAKER_00"},
		{Start: 3, End: 4.5, Speaker: "SPEAKER_01"},
		{Start: 4.5, End: 8, Speaker: "SPEAKER_01"},
	}

	transcript.AssignSpeakers(turns, doc)

	if got := doc.Segments[0].Speaker; got != "SPEAKER_00" {
		t.Fatalf("segment 0 speaker = %q, want SPEAKER_00", got)
	}
	if got := doc.Segments[1].Speaker; got != "SPEAKER_01" {
		t.Fatalf("segment 1 speaker = %q, want SPEAKER_01", got)
	}
}

func TestAssignSpeakersLeavesUncoveredSpansUnlabeled(t *testing.T) {
	doc := &transcript.Document{
		Segments: []transcript.Segment{
			{Start: 0, End: 2, Text: "covered"},
			{Start: 10, End: 12, Text: "silence gap"},
		},
	}
	turns := []transcript.SpeakerTurn{
		{Start: 0, End: 2, Speaker: "SPEAKER_00"},
	}

	transcript.AssignSpeakers(turns, doc)

	if got := doc.Segments[0].Speaker; got != "SPEAKER_00" {
		t.Fatalf("segment 0 speaker = %q, want SPEAKER_00", got)
	}
	if got := doc.Segments[1].Speaker; got != "" {
		t.Fatalf("segment 1 speaker = %q, want empty", got)
	}
}

func TestAssignSpeakersAccumulatesSplitTurns(t *testing.T) {
	// Two short turns for one speaker must outweigh a single longer turn for
	// another.
	doc := &transcript.Document{
		Segments: []transcript.Segment{{Start: 0, End: 10, Text: "split"}},
	}
	turns := []transcript.SpeakerTurn{
		{Start: 0, End: 3, Speaker: "SPEAKER_00"},
		{Start: 3, End: 7, Speaker: "SPEAKER_01"},
		{Start: 7, End: 10, Speaker: "SPEAKER_00"},
	}

	transcript.AssignSpeakers(turns, doc)

	if got := doc.Segments[0].Speaker; got != "SPEAKER_00" {
		t.Fatalf("speaker = %q, want SPEAKER_00", got)
	}
}

func TestAssignSpeakersTieBreaksDeterministically(t *testing.T) {
	doc := &transcript.Document{
		Segments: []transcript.Segment{{Start: 0, End: 4, Text: "tie"}},
	}
	turns := []transcript.SpeakerTurn{
		{Start: 0, End: 2, Speaker: "SPEAKER_01"},
		{Start: 2, End: 4, Speaker: "SPEAKER_00"},
	}

	transcript.AssignSpeakers(turns, doc)

	if got := doc.Segments[0].Speaker; got != "SPEAKER_00" {
		t.Fatalf("speaker = %q, want lexicographically smallest SPEAKER_00", got)
	}
}

func TestAssignSpeakersLabelsWords(t *testing.T) {
	doc := &transcript.Document{
		Segments: []transcript.Segment{
			{
				Start: 0,
				End:   4,
				Text:  "hello there",
				Words: []transcript.Word{
					{Word: "hello", Start: 0, End: 1.8},
					{Word: "there", Start: 2.2, End: 4},
					{Word: "42"}, // no timestamps, stays unlabeled
				},
			},
		},
	}
	turns := []transcript.SpeakerTurn{
		{Start: 0, End: 2, Speaker: "SPEAKER_00"},
		{Start: 2, End: 4, Speaker: "SPEAKER_01"},
	}

	transcript.AssignSpeakers(turns, doc)

	words := doc.Segments[0].Words
	if words[0].Speaker != "SPEAKER_00" {
		t.Fatalf("word 0 speaker = %q, want SPEAKER_00", words[0].Speaker)
	}
	if words[1].Speaker != "SPEAKER_01" {
		t.Fatalf("word 1 speaker = %q, want SPEAKER_01", words[1].Speaker)
	}
	if words[2].Speaker != "" {
		t.Fatalf("word 2 speaker = %q, want empty", words[2].Speaker)
	}
}
