package transcript

// SpeakerTurn is one diarization interval: a speaker label attached to a span
// of audio time.
type SpeakerTurn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// AssignSpeakers labels each segment and word with the speaker whose turns
// overlap it the most. Spans no turn overlaps keep an empty label; ties break
// toward the lexicographically smallest speaker so assignment is
// deterministic.
func AssignSpeakers(turns []SpeakerTurn, doc *Document) {
	if doc == nil || len(turns) == 0 {
		return
	}
	for i := range doc.Segments {
		seg := &doc.Segments[i]
		if speaker := dominantSpeaker(turns, seg.Start, seg.End); speaker != "" {
			seg.Speaker = speaker
		}
		for j := range seg.Words {
			word := &seg.Words[j]
			if speaker := dominantSpeaker(turns, word.Start, word.End); speaker != "" {
				word.Speaker = speaker
			}
		}
	}
}

func dominantSpeaker(turns []SpeakerTurn, start, end float64) string {
	if end <= start {
		return ""
	}
	totals := make(map[string]float64)
	for _, turn := range turns {
		if turn.Speaker == "" {
			continue
		}
		lo := max(start, turn.Start)
		hi := min(end, turn.End)
		if hi > lo {
			totals[turn.Speaker] += hi - lo
		}
	}
	var best string
	var bestOverlap float64
	for speaker, overlap := range totals {
		if overlap > bestOverlap || (overlap == bestOverlap && bestOverlap > 0 && speaker < best) {
			best = speaker
			bestOverlap = overlap
		}
	}
	return best
}
