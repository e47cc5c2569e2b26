package command

import "errors"

// ErrValidation matches every *ValidationError with errors.Is.
var ErrValidation = errors.New("invalid command")

// ValidationError reports a recognised command with missing arguments.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}
