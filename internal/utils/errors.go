package utils

import (
	"errors"
	"fmt"
)

// Kind classifies a prediction failure. Callers switch on the kind, never
// on transport-specific error types.
type Kind string

const (
	// KindValidation marks input rejected before any network call.
	KindValidation Kind = "validation"
	// KindTransport marks a non-2xx status or a malformed response body.
	KindTransport Kind = "transport"
	// KindNetwork marks a request that could not be sent or completed.
	KindNetwork Kind = "network"
	// KindTimeout marks a request that exceeded its client-side deadline.
	KindTimeout Kind = "timeout"
	// KindProtocol marks a GraphQL envelope carrying a populated errors array.
	KindProtocol Kind = "protocol"
)

// PredictionError wraps an operation, a failure kind, a human-facing
// message, and the underlying error.
type PredictionError struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *PredictionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// NewPredictionError constructs a PredictionError.
func NewPredictionError(kind Kind, op, msg string, err error) error {
	return &PredictionError{Kind: kind, Op: op, Msg: msg, Err: err}
}

// KindOf extracts the failure kind from err, or "" when err carries none.
func KindOf(err error) Kind {
	var pe *PredictionError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// MessageOf extracts the human-facing message from err, falling back to
// err.Error() for foreign errors.
func MessageOf(err error) string {
	var pe *PredictionError
	if errors.As(err, &pe) {
		return pe.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
