package ttn

import "errors"

var (
	// ErrInvalidDocument is returned when a message is not a usable TTN document.
	ErrInvalidDocument = errors.New("ttn: invalid document")

	// ErrJoinAccept is returned by Parse for activation documents.
	ErrJoinAccept = errors.New("ttn: join accept")
)
