package payload

import (
	"errors"
	"fmt"
)

// Decode errors.
var (
	// ErrPayloadLengthMismatch is matched by *LengthMismatchError.
	ErrPayloadLengthMismatch = errors.New("payload: length mismatch")

	// ErrUnsupportedCodec is returned for codecs or frame formats that are
	// known but not implemented.
	ErrUnsupportedCodec = errors.New("payload: unsupported codec")

	// ErrMalformedPayload is returned when the payload has the right size
	// but its content cannot be a valid measurement.
	ErrMalformedPayload = errors.New("payload: malformed payload")

	// ErrUnexpectedChannel is returned when a codec family has no frame
	// format for the uplink's frame channel.
	ErrUnexpectedChannel = fmt.Errorf("%w: unexpected frame channel", ErrMalformedPayload)
)

// LengthMismatchError reports a payload whose size does not match the
// fixed layout of its frame format.
type LengthMismatchError struct {
	Codec    CodecKind
	Expected int
	Actual   int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("payload: expected %s payload to be %d bytes, but was %d",
		e.Codec, e.Expected, e.Actual)
}

// Is lets errors.Is match ErrPayloadLengthMismatch.
func (e *LengthMismatchError) Is(target error) bool {
	return target == ErrPayloadLengthMismatch
}
