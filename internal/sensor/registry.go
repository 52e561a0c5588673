package sensor

import (
	"fmt"
	"sort"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/config"
	"github.com/nerrad567/ttn-relay/internal/payload"
)

// Profile describes how to handle uplinks from one device.
type Profile struct {
	// Codec selects the payload decoder.
	Codec payload.CodecKind

	// ExternalID is the sensor ID used by the measurement API and as
	// the sensor_id tag.
	ExternalID uint32

	// SubmitToPrimarySink controls delivery to the measurement API.
	SubmitToPrimarySink bool
}

// Registry is an immutable DevEUI → Profile map.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry copies profiles into a new Registry.
func NewRegistry(profiles map[string]Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]Profile, len(profiles))}
	for id, p := range profiles {
		if id == "" {
			return nil, ErrEmptyIdentity
		}
		r.profiles[id] = p
	}
	return r, nil
}

// FromConfig builds a Registry from the sensors section of the configuration.
func FromConfig(sensors map[string]config.SensorConfig) (*Registry, error) {
	profiles := make(map[string]Profile, len(sensors))
	for devEUI, sc := range sensors {
		codec, ok := payload.CodecForFamily(sc.SensorType)
		if !ok {
			return nil, fmt.Errorf("%w: %q for %s", ErrUnknownSensorType, sc.SensorType, devEUI)
		}
		profiles[devEUI] = Profile{
			Codec:               codec,
			ExternalID:          sc.SensorID,
			SubmitToPrimarySink: sc.SubmitToAPI(),
		}
	}
	return NewRegistry(profiles)
}

// Lookup returns the profile for a device identity. Matching is exact
// and case sensitive.
func (r *Registry) Lookup(identity string) (Profile, bool) {
	p, ok := r.profiles[identity]
	return p, ok
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	return len(r.profiles)
}

// Each calls fn for every device in identity order.
func (r *Registry) Each(fn func(identity string, p Profile)) {
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fn(id, r.profiles[id])
	}
}
