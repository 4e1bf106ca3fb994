package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoResult is the cause recorded when a stream closes before a terminal event.
var ErrNoResult = errors.New("stream ended without result")

// AuthenticationError means the credential refresh failed or no refresh
// credential exists. The application should treat it as a forced logout;
// the client never retries past it.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// ServerError carries a message produced by the server, either from an
// explicit error event or from a non-2xx response body.
type ServerError struct {
	StatusCode int // 0 when the error arrived as a stream event
	Message    string
}

func (e *ServerError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server error: %s", e.Message)
}

// ProtocolError means the stream violated the wire contract: it closed
// without a terminal event, or a payload could not be decoded. Unlike
// ServerError there is no server-authored message to show.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol error: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// CancellationError means the caller aborted the stream. Callers should
// treat it as a non-failure outcome.
type CancellationError struct {
	Err error // the underlying context error
}

func (e *CancellationError) Error() string { return "stream cancelled" }

func (e *CancellationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return context.Canceled
}

// IsCancellation reports whether err settles a stream as cancelled.
func IsCancellation(err error) bool {
	var ce *CancellationError
	return errors.As(err, &ce)
}

// IsAuthentication reports whether err is an authentication failure.
func IsAuthentication(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}
