package payload

import "encoding/binary"

const (
	draginoV1Size = 11

	// draginoSignMask selects the high bits of the temperature word that
	// are only set for negative readings.
	draginoSignMask = 0xFC
)

// decodeDraginoV1 decodes a Dragino LSN50 style frame:
//
//	[0:2]  battery mV
//	[2:4]  temperature, 0.1 °C
//	[4:6]  reserved
//	[6]    alarm flag
//	[7:11] other probes, unused
func decodeDraginoV1(b []byte) (Measurement, error) {
	battery := binary.BigEndian.Uint16(b[0:2])
	raw := float32(binary.BigEndian.Uint16(b[2:4]))

	var temp float32
	if b[2]&draginoSignMask == 0 {
		temp = raw / 10
	} else {
		temp = (raw - 65536) / 10
	}

	return Measurement{
		TemperatureWater:  temp,
		BatteryMillivolts: battery,
	}, nil
}
