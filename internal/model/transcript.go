package model

// Transcript is the persisted transcript payload for one episode. The JSON
// shape is a stable contract; downstream consumers parse it as-is.
type Transcript struct {
	Segments []Segment         `json:"segments"`
	Speakers map[string]string `json:"speakers"`
	Language string            `json:"language"`
	Duration float64           `json:"duration"`
}

type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker *string `json:"speaker"`
}

func (t *Transcript) PlainText() string {
	if t == nil {
		return ""
	}
	var out string
	for i, seg := range t.Segments {
		if i > 0 {
			out += "\n"
		}
		out += seg.Text
	}
	return out
}
