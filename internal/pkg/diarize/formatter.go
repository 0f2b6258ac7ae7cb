// Package diarize turns speaker tagged words into a readable transcript
package diarize

import (
	"fmt"
	"strings"

	"github.com/airenas/docbuddy/internal/pkg/transcriber/api"
)

// Segment is a run of consecutive words of one speaker
type Segment struct {
	Speaker string
	Speech  string
}

// Segments groups consecutive same speaker words, spacing tokens are skipped
func Segments(words []api.Word) []Segment {
	var res []Segment
	var cur Segment
	var sb strings.Builder
	started := false
	flush := func() {
		if speech := strings.TrimSpace(sb.String()); speech != "" {
			res = append(res, Segment{Speaker: cur.Speaker, Speech: speech})
		}
		sb.Reset()
	}
	for _, w := range words {
		if w.Type == api.TokenSpacing {
			continue
		}
		if !started || w.SpeakerID != cur.Speaker {
			if started {
				flush()
			}
			started = true
			cur.Speaker = w.SpeakerID
			sb.WriteString(w.Text)
			continue
		}
		sb.WriteByte(' ')
		sb.WriteString(w.Text)
	}
	if started {
		flush()
	}
	return res
}

// Format renders segments as 'Speaker <id>: <speech>' separated by an empty line
func Format(words []api.Word) string {
	segments := Segments(words)
	lines := make([]string, 0, len(segments))
	for _, s := range segments {
		lines = append(lines, fmt.Sprintf("Speaker %s: %s", s.Speaker, s.Speech))
	}
	return strings.Join(lines, "\n\n")
}
