package services

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies why a dispatch produced no reply.
type ErrorKind string

const (
	KindEmptyInput        ErrorKind = "empty_input"
	KindNetworkFailure    ErrorKind = "network_failure"
	KindTimeout           ErrorKind = "timeout"
	KindHTTPStatus        ErrorKind = "http_error"
	KindEmptyResponse     ErrorKind = "empty_response"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindMissingOutput     ErrorKind = "missing_output"
)

// ErrEmptyInput is returned for blank questions. Callers ignore it silently.
var ErrEmptyInput = &DispatchError{Kind: KindEmptyInput}

// DispatchError is the only error type Ask returns.
type DispatchError struct {
	Kind   ErrorKind
	Status int // set for KindHTTPStatus
	Err    error
}

func (e *DispatchError) Error() string {
	switch {
	case e.Kind == KindHTTPStatus:
		return fmt.Sprintf("assistant dispatch: %s (status %d)", e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("assistant dispatch: %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("assistant dispatch: %s", e.Kind)
	}
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Is matches on kind (and status for HTTP errors), so errors.Is(err, ErrEmptyInput) works.
func (e *DispatchError) Is(target error) bool {
	t, ok := target.(*DispatchError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Status == 0 || t.Status == e.Status
}

func newDispatchError(kind ErrorKind, err error) *DispatchError {
	return &DispatchError{Kind: kind, Err: err}
}

// KindOf returns the kind of a dispatch error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
