// Package payload decodes the binary uplink payloads of the supported
// water temperature sensors into a Measurement.
//
// Each sensor profile names a CodecKind. Some codec families carry
// several frame formats and use the LoRaWAN frame port ("channel") to
// tell them apart, so decoding is a two step lookup:
//
//	(CodecKind, channel) -> frame kind -> frame decoder
//
// Both steps are plain lookup tables. Frame decoders check the exact
// payload length before touching any byte.
//
// Supported frames:
//
//	DraginoV1   11 bytes, big endian. Battery mV (u16), temperature (u16, 0.1 °C).
//	GfroerliV1  16 bytes, four little endian float32:
//	            water °C, enclosure °C, enclosure %RH, battery V.
//	GfroerliV2  reserved, always ErrUnsupportedCodec.
//
// All functions are pure and safe for concurrent use.
package payload
