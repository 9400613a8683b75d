package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrAlreadyDispatched = errors.New("message already dispatched")
)

// ValidationError carries the message shown to the caller of a callable.
// It matches ErrInvalidArgument with errors.Is.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}
