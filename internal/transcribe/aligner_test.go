package transcribe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlignMidpointRule(t *testing.T) {
	segments := []RawSegment{
		{Start: 10, End: 12, Text: "hello"},
	}
	turns := []DiarizationTurn{
		{Start: 0, End: 10.5, SpeakerID: "SPEAKER_00"},
		{Start: 10.5, End: 20, SpeakerID: "SPEAKER_01"},
	}

	out, speakers := Align(segments, turns)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Speaker)
	// midpoint is 11, inside [10.5, 20)
	require.Equal(t, "SPEAKER_01", *out[0].Speaker)
	require.Equal(t, map[string]string{"SPEAKER_01": "Speaker 1"}, speakers)
}

func TestAlignMidpointBoundaryIsHalfOpen(t *testing.T) {
	// midpoint lands exactly on the boundary between two turns; the later
	// turn owns it because intervals are [start, end).
	segments := []RawSegment{
		{Start: 9, End: 11, Text: "boundary"},
	}
	turns := []DiarizationTurn{
		{Start: 0, End: 10, SpeakerID: "A"},
		{Start: 10, End: 20, SpeakerID: "B"},
	}

	out, _ := Align(segments, turns)
	require.Equal(t, "B", *out[0].Speaker)
}

func TestAlignOverlapFallback(t *testing.T) {
	// the turns leave [9.5,10.5) uncovered, so the midpoint at 10 matches
	// neither turn and the overlap fallback decides
	segments := []RawSegment{
		{Start: 9, End: 11, Text: "gap"},
	}
	turns := []DiarizationTurn{
		{Start: 0, End: 9.5, SpeakerID: "A"},
		{Start: 10.5, End: 20, SpeakerID: "B"},
	}

	out, _ := Align(segments, turns)
	require.NotNil(t, out[0].Speaker)
	// overlap with A is 0.5s, with B is 0.5s; the first maximal turn wins
	require.Equal(t, "A", *out[0].Speaker)
}

func TestAlignOverlapFallbackPicksLargest(t *testing.T) {
	segments := []RawSegment{
		{Start: 9, End: 12, Text: "gap"},
	}
	turns := []DiarizationTurn{
		{Start: 8, End: 9.5, SpeakerID: "A"},
		{Start: 10.6, End: 20, SpeakerID: "B"},
	}

	out, _ := Align(segments, turns)
	// midpoint 10.5 matches neither turn; A overlaps 0.5s, B overlaps 1.4s
	require.Equal(t, "B", *out[0].Speaker)
}

func TestAlignNoOverlapKeepsNilSpeaker(t *testing.T) {
	segments := []RawSegment{
		{Start: 100, End: 105, Text: "outro"},
	}
	turns := []DiarizationTurn{
		{Start: 0, End: 50, SpeakerID: "A"},
	}

	out, speakers := Align(segments, turns)
	require.Nil(t, out[0].Speaker)
	require.Empty(t, speakers)
}

func TestAlignNoTurns(t *testing.T) {
	segments := []RawSegment{
		{Start: 0, End: 5, Text: "solo"},
	}

	out, speakers := Align(segments, nil)
	require.Len(t, out, 1)
	require.Nil(t, out[0].Speaker)
	require.Empty(t, speakers)
}

func TestAlignSpeakerNamesByFirstAppearance(t *testing.T) {
	segments := []RawSegment{
		{Start: 10, End: 12, Text: "second voice first"},
		{Start: 2, End: 4, Text: "first voice later"},
		{Start: 13, End: 15, Text: "second voice again"},
	}
	turns := []DiarizationTurn{
		{Start: 0, End: 9, SpeakerID: "SPEAKER_00"},
		{Start: 9, End: 20, SpeakerID: "SPEAKER_01"},
	}

	_, speakers := Align(segments, turns)
	require.Equal(t, map[string]string{
		"SPEAKER_01": "Speaker 1",
		"SPEAKER_00": "Speaker 2",
	}, speakers)
}

func TestAlignDeterministic(t *testing.T) {
	segments := []RawSegment{
		{Start: 0, End: 3, Text: "a"},
		{Start: 3, End: 6, Text: "b"},
		{Start: 6, End: 9, Text: "c"},
	}
	turns := []DiarizationTurn{
		{Start: 0, End: 4, SpeakerID: "X"},
		{Start: 4, End: 9, SpeakerID: "Y"},
	}

	first, firstSpeakers := Align(segments, turns)
	for i := 0; i < 10; i++ {
		again, againSpeakers := Align(segments, turns)
		require.Equal(t, first, again)
		require.Equal(t, firstSpeakers, againSpeakers)
	}
}
