package model

import (
	"errors"
	"fmt"
)

// Error kinds shared by the core and its collaborators. Callers test them with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrOutOfRange      = errors.New("credential index out of range")
	ErrNotConfigured   = errors.New("not configured")
	ErrExternalFailure = errors.New("external failure")
	ErrSigning         = errors.New("signing failed")
	ErrInvalidInput    = errors.New("invalid input")
)

// ExternalError wraps a collaborator failure. Error returns the collaborator's own
// message so it reaches the caller unmodified.
type ExternalError struct {
	Collaborator string
	Message      string
	Err          error
}

// NewExternalError builds an ExternalError, taking the message from err when none is given.
func NewExternalError(collaborator string, err error) *ExternalError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &ExternalError{Collaborator: collaborator, Message: msg, Err: err}
}

func (e *ExternalError) Error() string {
	return e.Message
}

// Unwrap exposes both the kind and the original cause.
func (e *ExternalError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExternalFailure}
	}
	return []error{ErrExternalFailure, e.Err}
}

// NotFoundf returns an ErrNotFound carrying a description of the missing entity.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}
