package draft

import (
	"testing"

	"github.com/airenas/docbuddy/internal/pkg/status"
	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func Test_next(t *testing.T) {
	tests := []struct {
		name    string
		from    status.Status
		ev      event
		want    status.Status
		wantErr bool
	}{
		{name: "record", from: status.Editing, ev: evStartRecording, want: status.Recording},
		{name: "record again", from: status.Reviewing, ev: evStartRecording, want: status.Recording},
		{name: "record twice", from: status.Recording, ev: evStartRecording, want: status.Recording, wantErr: true},
		{name: "continue", from: status.Recording, ev: evContinue, want: status.Reviewing},
		{name: "continue not recording", from: status.Editing, ev: evContinue, want: status.Editing, wantErr: true},
		{name: "replace", from: status.Recording, ev: evReplaceAudio, want: status.Reviewing},
		{name: "replace finalizing", from: status.Finalizing, ev: evReplaceAudio, want: status.Finalizing, wantErr: true},
		{name: "transcribe editing", from: status.Editing, ev: evTranscribe, want: status.Reviewing},
		{name: "transcribe reviewing", from: status.Reviewing, ev: evTranscribe, want: status.Reviewing},
		{name: "transcribe recording", from: status.Recording, ev: evTranscribe, want: status.Recording, wantErr: true},
		{name: "analyze", from: status.Reviewing, ev: evAnalyze, want: status.Finalizing},
		{name: "analyze again", from: status.Finalizing, ev: evAnalyze, want: status.Finalizing},
		{name: "finalize", from: status.Finalizing, ev: evFinalize, want: status.Finalized},
		{name: "finalize reviewing", from: status.Reviewing, ev: evFinalize, want: status.Reviewing, wantErr: true},
		{name: "edit", from: status.Recording, ev: evEdit, want: status.Recording},
		{name: "delete", from: status.Finalizing, ev: evDelete, want: status.Discarded},
		{name: "finalized record", from: status.Finalized, ev: evStartRecording, want: status.Finalized, wantErr: true},
		{name: "discarded record", from: status.Discarded, ev: evStartRecording, want: status.Discarded, wantErr: true},
		{name: "discarded edit", from: status.Discarded, ev: evEdit, want: status.Discarded, wantErr: true},
		{name: "finalized delete", from: status.Finalized, ev: evDelete, want: status.Finalized, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := next(tt.from, tt.ev)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.ErrorIs(t, err, utils.ErrConflict)
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

func Test_next_TerminalNeverLeft(t *testing.T) {
	for ev := range transitions {
		for _, st := range []status.Status{status.Finalized, status.Discarded} {
			_, err := next(st, ev)
			assert.ErrorIs(t, err, utils.ErrConflict, "%s %s", st, ev)
		}
	}
}
