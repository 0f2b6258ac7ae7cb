package diarize

import (
	"strings"
	"testing"

	"github.com/airenas/docbuddy/internal/pkg/transcriber/api"
	"github.com/stretchr/testify/assert"
)

func w(sp, text string) api.Word {
	return api.Word{Text: text, SpeakerID: sp, Type: "word"}
}

func space(sp string) api.Word {
	return api.Word{Text: " ", SpeakerID: sp, Type: api.TokenSpacing}
}

func TestFormat_Empty(t *testing.T) {
	assert.Equal(t, "", Format(nil))
	assert.Equal(t, "", Format([]api.Word{}))
	assert.Equal(t, "", Format([]api.Word{space("A"), space("B")}))
}

func TestFormat_SingleSpeaker(t *testing.T) {
	tests := []struct {
		name  string
		words []api.Word
		want  string
	}{
		{name: "one", words: []api.Word{w("0", "hello")}, want: "Speaker 0: hello"},
		{name: "many", words: []api.Word{w("0", "hello"), space("0"), w("0", "doctor"), w("0", "smith")},
			want: "Speaker 0: hello doctor smith"},
		{name: "trim", words: []api.Word{w("0", " hello"), w("0", "there ")}, want: "Speaker 0: hello there"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.words)
			assert.Equal(t, tt.want, got)
			assert.Len(t, Segments(tt.words), 1)
		})
	}
}

func TestFormat_Segments(t *testing.T) {
	words := []api.Word{w("A", "a1"), space("A"), w("A", "a2"), space("A"),
		w("B", "b1"), space("B"), w("B", "b2"), space("B"), w("A", "a3")}

	segs := Segments(words)

	assert.Equal(t, []Segment{{Speaker: "A", Speech: "a1 a2"}, {Speaker: "B", Speech: "b1 b2"},
		{Speaker: "A", Speech: "a3"}}, segs)
	assert.Equal(t, "Speaker A: a1 a2\n\nSpeaker B: b1 b2\n\nSpeaker A: a3", Format(words))
	assert.Equal(t, 3, strings.Count(Format(words), "Speaker "))
}

func TestFormat_EmptySpeechSkipped(t *testing.T) {
	words := []api.Word{w("A", " "), w("B", "b1"), w("C", ""), w("A", "a1")}
	assert.Equal(t, "Speaker B: b1\n\nSpeaker A: a1", Format(words))
}

func TestFormat_EmptySpeakerID(t *testing.T) {
	words := []api.Word{w("", "x"), w("", "y"), w("1", "z")}
	assert.Equal(t, "Speaker : x y\n\nSpeaker 1: z", Format(words))
}

func TestFormat_Deterministic(t *testing.T) {
	words := []api.Word{w("A", "a"), w("B", "b")}
	assert.Equal(t, Format(words), Format(words))
}
