package solver

import (
	"context"
	"errors"
	"fmt"
)

// ErrCancelled is returned when the caller's context ends a call. It is a
// silent stop, not a failure: surfaces reset their state and report nothing.
var ErrCancelled = errors.New("request cancelled")

// IsCancelled reports whether err means the caller stopped the call.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// TransportError is a network failure, a non-2xx response, or a 2xx
// response without a body.
type TransportError struct {
	// StatusCode is zero when no response was received.
	StatusCode int

	// Message is the human-readable reason, taken from the response body
	// when it carries one.
	Message string

	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	case e.StatusCode != 0:
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	default:
		return "transport error"
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ConfigurationError means a call could not be attempted, e.g. because no
// API key is configured for the credential slot its model routes to.
type ConfigurationError struct {
	Slot   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Slot == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Slot, e.Reason)
}
