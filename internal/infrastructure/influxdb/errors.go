package influxdb

import (
	"errors"
	"fmt"
)

// Sentinel errors for InfluxDB operations.
//
//	if errors.Is(err, influxdb.ErrWriteFailed) {
//	    // the point was not stored
//	}
var (
	// ErrWriteFailed indicates a write was not accepted.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrNotConfigured indicates neither influxdb nor influxdb2 is configured.
	ErrNotConfigured = errors.New("influxdb: not configured")

	// ErrUnhealthy indicates the server did not answer the ping.
	ErrUnhealthy = errors.New("influxdb: server not healthy")

	// ErrUnsupportedField indicates a field value of a type line protocol
	// cannot carry.
	ErrUnsupportedField = errors.New("influxdb: unsupported field type")
)

// StatusError reports a non-2xx HTTP status from the v1 write endpoint.
// It matches ErrWriteFailed.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("influxdb: write failed: %s", e.Status)
	}
	return fmt.Sprintf("influxdb: write failed: %s: %s", e.Status, e.Body)
}

// Is lets errors.Is match ErrWriteFailed.
func (e *StatusError) Is(target error) bool {
	return target == ErrWriteFailed
}
