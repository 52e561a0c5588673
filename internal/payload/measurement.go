package payload

// Measurement is a decoded sensor reading.
type Measurement struct {
	// TemperatureWater in °C.
	TemperatureWater float32

	// TemperatureEnclosure in °C. Nil when the sensor has no enclosure probe.
	TemperatureEnclosure *float32

	// HumidityEnclosure in %RH. Nil when the sensor has no enclosure probe.
	HumidityEnclosure *float32

	BatteryMillivolts uint16
}

// BatteryVolts returns the battery voltage in volts.
func (m Measurement) BatteryVolts() float64 {
	return float64(m.BatteryMillivolts) / 1000
}
