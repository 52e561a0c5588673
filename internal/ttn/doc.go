// Package ttn models The Things Stack (TTN v3) application messages
// published on the MQTT integration and turns uplink documents into
// the relay's Uplink type.
//
// Only the subset of the document the relay uses is modelled. Unknown
// fields are ignored.
package ttn
