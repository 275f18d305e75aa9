package proctoring

import (
	"errors"
	"fmt"
)

// Registry and access errors. Handlers map these onto HTTP statuses.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionTerminated = errors.New("session already terminated")
	ErrSessionIDInUse    = errors.New("session id already in use by another participant")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrUnauthorized      = errors.New("not authorized")
)

// DecodeError means the submitted sample payload could not be parsed.
// Client error: the sample is dropped with no state change.
type DecodeError struct {
	Sample SampleKind
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s sample: %v", e.Sample, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ClassificationError means an analysis collaborator failed unexpectedly.
// Server error: the sample is dropped, logged, and the session is untouched.
type ClassificationError struct {
	Sample SampleKind
	Err    error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify %s sample: %v", e.Sample, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }
