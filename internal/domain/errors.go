package domain

import "errors"

// ErrNotFound indicates a record (assist request, user cart) does not exist.
// Callers decide how to react; the service never treats it as fatal.
var ErrNotFound = errors.New("not found")

// ValidationError rejects bad user input before any state changes.
// It is reported to the user and never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidationError creates a ValidationError with the given message.
func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
