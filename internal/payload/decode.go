package payload

import "fmt"

type route struct {
	codec   CodecKind
	channel uint16
}

// channelRoutes maps a codec family and frame channel to a frame format.
var channelRoutes = map[route]CodecKind{
	{GfroerliV1, 1}: GfroerliV1,
	{GfroerliV1, 2}: GfroerliV2,
}

// anyChannelRoutes lists codecs whose frame format does not depend on
// the channel.
var anyChannelRoutes = map[CodecKind]CodecKind{
	DraginoV1:  DraginoV1,
	GfroerliV2: GfroerliV2,
}

type frameDecoder struct {
	size   int
	decode func(b []byte) (Measurement, error)
}

// frames holds the implemented frame formats. A routed kind missing here
// is unsupported.
var frames = map[CodecKind]frameDecoder{
	DraginoV1:  {size: draginoV1Size, decode: decodeDraginoV1},
	GfroerliV1: {size: gfroerliV1Size, decode: decodeGfroerliV1},
}

// Decode decodes an uplink payload for a sensor provisioned with codec,
// received on the given frame channel.
func Decode(codec CodecKind, channel uint16, payload []byte) (Measurement, error) {
	kind, err := resolve(codec, channel)
	if err != nil {
		return Measurement{}, err
	}
	return DecodeFrame(kind, payload)
}

// Resolve returns the frame format Decode would use, without decoding.
func Resolve(codec CodecKind, channel uint16) (CodecKind, error) {
	return resolve(codec, channel)
}

func resolve(codec CodecKind, channel uint16) (CodecKind, error) {
	if kind, ok := anyChannelRoutes[codec]; ok {
		return kind, nil
	}
	if kind, ok := channelRoutes[route{codec, channel}]; ok {
		return kind, nil
	}
	if codec.Family() == "" {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedCodec, codec)
	}
	return 0, fmt.Errorf("%w %d for %s", ErrUnexpectedChannel, channel, codec)
}

// DecodeFrame decodes payload as the given frame format.
func DecodeFrame(kind CodecKind, payload []byte) (Measurement, error) {
	frame, ok := frames[kind]
	if !ok {
		return Measurement{}, fmt.Errorf("%w: %s", ErrUnsupportedCodec, kind)
	}
	if len(payload) != frame.size {
		return Measurement{}, &LengthMismatchError{
			Codec:    kind,
			Expected: frame.size,
			Actual:   len(payload),
		}
	}
	return frame.decode(payload)
}
