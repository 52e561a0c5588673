package payload

import (
	"encoding/binary"
	"fmt"
	"math"
)

const gfroerliV1Size = 16

// decodeGfroerliV1 decodes four little endian float32 values:
// water temperature, enclosure temperature, enclosure humidity and
// battery voltage in volts.
func decodeGfroerliV1(b []byte) (Measurement, error) {
	water := le32(b[0:4])
	enclosure := le32(b[4:8])
	humidity := le32(b[8:12])
	volts := le32(b[12:16])

	for _, f := range []struct {
		name  string
		value float32
	}{
		{"water temperature", water},
		{"enclosure temperature", enclosure},
		{"enclosure humidity", humidity},
		{"battery voltage", volts},
	} {
		if !finite(f.value) {
			return Measurement{}, fmt.Errorf("%w: %s is %v", ErrMalformedPayload, f.name, f.value)
		}
	}

	mv := math.Round(float64(volts) * 1000)
	if mv < 0 || mv > math.MaxUint16 {
		return Measurement{}, fmt.Errorf("%w: battery voltage %.3f V out of range", ErrMalformedPayload, volts)
	}

	return Measurement{
		TemperatureWater:     water,
		TemperatureEnclosure: &enclosure,
		HumidityEnclosure:    &humidity,
		BatteryMillivolts:    uint16(mv),
	}, nil
}

func le32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func finite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}
