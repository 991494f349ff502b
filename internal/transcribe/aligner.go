package transcribe

import (
	"fmt"

	"github.com/compasshq/compass/internal/model"
)

// Align merges transcript segments with diarization turns into labeled
// transcript segments plus a speaker display-name map.
//
// Assignment per segment:
//  1. midpoint rule: if the segment midpoint falls inside a turn's half-open
//     interval [start, end), that turn wins (first match in turn order);
//  2. otherwise the turn with the greatest temporal overlap wins, ties broken
//     by turn order (first maximal turn wins);
//  3. a segment overlapping no turn keeps a nil speaker.
//
// Display names ("Speaker 1", "Speaker 2", ...) are handed out by first
// appearance in segment order, not in diarization-turn order.
func Align(segments []RawSegment, turns []DiarizationTurn) ([]model.Segment, map[string]string) {
	out := make([]model.Segment, 0, len(segments))
	speakers := make(map[string]string)

	for _, seg := range segments {
		labeled := model.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		}
		if id, ok := speakerFor(seg, turns); ok {
			if _, seen := speakers[id]; !seen {
				speakers[id] = fmt.Sprintf("Speaker %d", len(speakers)+1)
			}
			speaker := id
			labeled.Speaker = &speaker
		}
		out = append(out, labeled)
	}
	return out, speakers
}

func speakerFor(seg RawSegment, turns []DiarizationTurn) (string, bool) {
	midpoint := (seg.Start + seg.End) / 2
	for _, turn := range turns {
		if midpoint >= turn.Start && midpoint < turn.End {
			return turn.SpeakerID, true
		}
	}

	best := ""
	bestOverlap := 0.0
	for _, turn := range turns {
		overlap := overlapSeconds(seg, turn)
		if overlap > bestOverlap {
			bestOverlap = overlap
			best = turn.SpeakerID
		}
	}
	if bestOverlap <= 0 {
		return "", false
	}
	return best, true
}

func overlapSeconds(seg RawSegment, turn DiarizationTurn) float64 {
	start := seg.Start
	if turn.Start > start {
		start = turn.Start
	}
	end := seg.End
	if turn.End < end {
		end = turn.End
	}
	if end <= start {
		return 0
	}
	return end - start
}
