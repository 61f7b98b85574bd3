package core

import (
	"errors"
	"fmt"
)

var (
	ErrAuth       = errors.New("authentication required")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrTransport  = errors.New("transport failure")

	// ErrBusy is returned when an operation is re-entered while its previous attempt is in flight.
	ErrBusy = errors.New("operation already in progress")
	// ErrNotReady is returned while the session has not been resolved yet.
	ErrNotReady = errors.New("session is not resolved yet")
)

const transportMessage = "Something went wrong. Please try again."

// APIError is a failure classified into one of the error kinds.
// Status is zero for failures detected locally.
type APIError struct {
	Kind    error
	Status  int
	Message string
	Cause   error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func NewError(kind error, status int, message string) *APIError {
	return &APIError{Kind: kind, Status: status, Message: message}
}

// ValidationError is a locally detected content problem.
func ValidationError(message string) *APIError {
	return &APIError{Kind: ErrValidation, Message: message}
}

// AuthError is a locally detected missing session.
func AuthError(message string) *APIError {
	return &APIError{Kind: ErrAuth, Message: message}
}

// TransportError wraps a network level failure.
func TransportError(cause error) *APIError {
	return &APIError{Kind: ErrTransport, Message: cause.Error(), Cause: cause}
}

// Describe turns any failure into the string shown to the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		if errors.Is(err, ErrBusy) || errors.Is(err, ErrNotReady) {
			return err.Error()
		}
		return transportMessage
	}

	switch {
	case errors.Is(apiErr.Kind, ErrTransport):
		return transportMessage
	case apiErr.Message != "":
		return apiErr.Message
	case errors.Is(apiErr.Kind, ErrNotFound):
		return "Not found"
	case errors.Is(apiErr.Kind, ErrAuth):
		return "Please sign in"
	default:
		return apiErr.Kind.Error()
	}
}
