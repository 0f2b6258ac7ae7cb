package draft

import (
	"fmt"

	"github.com/airenas/docbuddy/internal/pkg/status"
	"github.com/airenas/docbuddy/internal/pkg/utils"
)

type event int

const (
	evEdit event = iota + 1
	evStartRecording
	evContinue
	evReplaceAudio
	evTranscribe
	evAnalyze
	evFinalize
	evDelete
)

var eventName = map[event]string{evEdit: "edit", evStartRecording: "start recording", evContinue: "continue recording",
	evReplaceAudio: "replace audio", evTranscribe: "transcribe", evAnalyze: "analyze", evFinalize: "finalize",
	evDelete: "delete"}

func (e event) String() string {
	return eventName[e]
}

type transition struct {
	from []status.Status
	to   status.Status
}

var liveStates = []status.Status{status.Editing, status.Recording, status.Reviewing, status.Finalizing}

// keep: the state does not change
const keep = status.Status(0)

var transitions = map[event]transition{
	evEdit:           {from: liveStates, to: keep},
	evStartRecording: {from: []status.Status{status.Editing, status.Reviewing}, to: status.Recording},
	evContinue:       {from: []status.Status{status.Recording}, to: status.Reviewing},
	evReplaceAudio:   {from: []status.Status{status.Editing, status.Recording, status.Reviewing}, to: status.Reviewing},
	evTranscribe:     {from: []status.Status{status.Editing, status.Reviewing}, to: status.Reviewing},
	evAnalyze:        {from: []status.Status{status.Reviewing, status.Finalizing}, to: status.Finalizing},
	evFinalize:       {from: []status.Status{status.Finalizing}, to: status.Finalized},
	evDelete:         {from: liveStates, to: status.Discarded},
}

// next returns the state after the event or utils.ErrConflict if the event is not allowed in the state
func next(from status.Status, ev event) (status.Status, error) {
	tr, ok := transitions[ev]
	if !ok {
		return from, fmt.Errorf("unknown event %d", ev)
	}
	for _, s := range tr.from {
		if s == from {
			if tr.to == keep {
				return from, nil
			}
			return tr.to, nil
		}
	}
	return from, fmt.Errorf("%w: can't %s in state %s", utils.ErrConflict, ev, from)
}
