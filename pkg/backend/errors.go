package backend

import (
	"errors"
	"fmt"
)

// Kind classifies backend failures so callers can map them to a response
// without inspecting error strings.
type Kind string

const (
	// KindUnavailable means the backend cannot be reached or is not ready.
	KindUnavailable Kind = "unavailable"
	// KindInference means the backend reached its model but scoring failed.
	KindInference Kind = "inference_failure"
	// KindTimeout means the per-call deadline elapsed before a result.
	KindTimeout Kind = "timeout"
)

// Error wraps a backend failure with its classification and the backend
// name that produced it.
type Error struct {
	Kind    Kind
	Backend string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("backend %s: %s", e.Backend, e.Kind)
	}
	return fmt.Sprintf("backend %s: %s: %v", e.Backend, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified backend error.
func NewError(kind Kind, backend string, err error) *Error {
	return &Error{Kind: kind, Backend: backend, Err: err}
}

// KindOf reports the classification of err, or "" if err is not a backend
// error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}
