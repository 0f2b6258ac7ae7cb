package utils

import "errors"

var (
	// ErrNotFound indicates a missing draft or session, or one owned by another user
	ErrNotFound = errors.New("not found")
	// ErrQuotaExceeded indicates the monthly transcription limit is reached
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrProviderFailure indicates a failed speech-to-text call
	ErrProviderFailure = errors.New("transcription failed")
	// ErrAnalysisFailure indicates a failed summary/diagnosis call
	ErrAnalysisFailure = errors.New("analysis failed")
	// ErrStorage indicates a failed blob or repository write
	ErrStorage = errors.New("storage failure")
	// ErrValidation indicates wrong or missing input
	ErrValidation = errors.New("validation failure")
	// ErrConflict indicates a stale or not allowed state transition
	ErrConflict = errors.New("conflict")
)

// ErrField is a validation error of one input field
type ErrField struct {
	Field string
	Msg   string
}

// NewErrField creates validation error
func NewErrField(field, msg string) error {
	return &ErrField{Field: field, Msg: msg}
}

func (e *ErrField) Error() string {
	return "wrong '" + e.Field + "': " + e.Msg
}

func (e *ErrField) Unwrap() error {
	return ErrValidation
}
