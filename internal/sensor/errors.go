package sensor

import "errors"

var (
	// ErrEmptyIdentity is returned when a profile is registered without a DevEUI.
	ErrEmptyIdentity = errors.New("sensor: empty device identity")

	// ErrUnknownSensorType is returned for a sensor_type with no codec.
	ErrUnknownSensorType = errors.New("sensor: unknown sensor type")
)
