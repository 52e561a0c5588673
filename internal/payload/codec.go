package payload

import "fmt"

// CodecKind identifies a payload format.
type CodecKind uint8

// Known codecs. The zero value is not a valid codec.
const (
	DraginoV1 CodecKind = iota + 1
	GfroerliV1
	// GfroerliV2 is reserved. Devices do not send it yet.
	GfroerliV2
)

// Codec families, used as the sensor_type tag.
const (
	FamilyDragino  = "dragino"
	FamilyGfroerli = "gfroerli"
)

var codecNames = map[CodecKind]string{
	DraginoV1:  "dragino_v1",
	GfroerliV1: "gfroerli_v1",
	GfroerliV2: "gfroerli_v2",
}

func (k CodecKind) String() string {
	if name, ok := codecNames[k]; ok {
		return name
	}
	return fmt.Sprintf("codec(%d)", uint8(k))
}

// Family returns the sensor family the codec belongs to, or "" for an
// unknown codec.
func (k CodecKind) Family() string {
	switch k {
	case DraginoV1:
		return FamilyDragino
	case GfroerliV1, GfroerliV2:
		return FamilyGfroerli
	default:
		return ""
	}
}

// ParseCodecKind parses the String form of a codec, e.g. "gfroerli_v1".
func ParseCodecKind(s string) (CodecKind, error) {
	for k, name := range codecNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedCodec, s)
}

// CodecForFamily maps a configured sensor type to the codec devices of
// that family are provisioned with.
func CodecForFamily(family string) (CodecKind, bool) {
	switch family {
	case FamilyDragino:
		return DraginoV1, true
	case FamilyGfroerli:
		return GfroerliV1, true
	default:
		return 0, false
	}
}
