package api

// TokenSpacing marks a pure inter-word spacing token
const TokenSpacing = "spacing"

// Word is one recognized token
type Word struct {
	Text      string  `json:"text"`
	SpeakerID string  `json:"speaker_id"`
	Type      string  `json:"type"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
}

// Audio keeps structure for transcribe method
type Audio struct {
	Name    string
	Content []byte
	// Language is an optional hint, empty - auto detect
	Language string
}

// Result is the speech-to-text response
type Result struct {
	LanguageCode string `json:"language_code"`
	Text         string `json:"text"`
	Words        []Word `json:"words"`
}

// Minutes returns duration from the end time of the last word
func (r *Result) Minutes() (float64, bool) {
	if r == nil || len(r.Words) == 0 {
		return 0, false
	}
	return r.Words[len(r.Words)-1].End / 60, true
}
