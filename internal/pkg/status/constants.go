package status

//Status represents draft lifecycle state
type Status int

const (
	// Editing - draft with stored audio
	Editing Status = iota + 1
	// Recording - capturing a continuation
	Recording
	// Reviewing - audio ready for transcription
	Reviewing
	// Finalizing - transcript and suggestions ready, clinician edits the form
	Finalizing
	// Finalized - session created, draft removed
	Finalized
	// Discarded - draft deleted or expired
	Discarded
)

var (
	statusName = map[Status]string{Editing: "EDITING", Recording: "RECORDING", Reviewing: "REVIEWING",
		Finalizing: "FINALIZING", Finalized: "FINALIZED", Discarded: "DISCARDED"}
	nameStatus = map[string]Status{"EDITING": Editing, "RECORDING": Recording, "REVIEWING": Reviewing,
		"FINALIZING": Finalizing, "FINALIZED": Finalized, "DISCARDED": Discarded}
)

func (st Status) String() string {
	return statusName[st]
}

// Terminal returns true for states no action may leave
func (st Status) Terminal() bool {
	return st == Finalized || st == Discarded
}

// From returns status obj from string
func From(st string) Status {
	return nameStatus[st]
}
