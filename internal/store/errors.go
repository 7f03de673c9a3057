package store

import (
	"errors"
	"fmt"
)

var (
	ErrPollNotFound     = errors.New("poll not found")
	ErrQuestionNotFound = errors.New("question not found")

	// Guard failures on a vote. The websocket boundary deliberately
	// collapses all of these into one generic message so a client can
	// not probe which guard it tripped.
	ErrQuestionNotActive = errors.New("question is not active")
	ErrAlreadyAnswered   = errors.New("participant already answered this question")
	ErrUnknownOption     = errors.New("option is not declared on this question")

	ErrQuestionNotPending = errors.New("question is not pending")
	ErrQuestionInProgress = errors.New("another question is still pending or active")
)

// ValidationError reports malformed input rejected at the boundary.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
