package transcribe

import "context"

// RawSegment is one timestamped span of transcribed speech, before speaker
// assignment. Start and End are seconds from the beginning of the audio.
type RawSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the output of one speech-to-text run.
type Result struct {
	Segments []RawSegment `json:"segments"`
	Language string       `json:"language"`
	Duration float64      `json:"duration"`
}

// Options tune decoding. BeamSize trades accuracy for latency and must not
// change segment boundary semantics.
type Options struct {
	Language string
	BeamSize int
}

// DiarizationTurn is one "who spoke when" span produced by the diarizer.
type DiarizationTurn struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	SpeakerID string  `json:"speaker"`
}

type SpeechModel interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error)
}

type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) ([]DiarizationTurn, error)
}
