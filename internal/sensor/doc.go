// Package sensor holds the registry of known end devices.
//
// The registry maps a device identity (the DevEUI exactly as TTN
// reports it) to the profile the device was provisioned with. It is
// built once from configuration and never mutated, so lookups need no
// locking.
package sensor
