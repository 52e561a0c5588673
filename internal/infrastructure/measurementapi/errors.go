package measurementapi

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestFailed is returned when the request could not be sent or
	// no response was received.
	ErrRequestFailed = errors.New("measurementapi: request failed")

	// ErrUnexpectedStatus is matched by *StatusError.
	ErrUnexpectedStatus = errors.New("measurementapi: unexpected status")
)

// StatusError reports a response other than 201 Created.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("measurementapi: unexpected status %s", e.Status)
}

// Is lets errors.Is match ErrUnexpectedStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}
