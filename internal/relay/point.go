package relay

import (
	"strconv"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/influxdb"
	"github.com/nerrad567/ttn-relay/internal/payload"
	"github.com/nerrad567/ttn-relay/internal/sensor"
	"github.com/nerrad567/ttn-relay/internal/ttn"
)

// Tag keys.
const (
	tagSensorID   = "sensor_id"
	tagDevEUI     = "dev_eui"
	tagSensorType = "sensor_type"
	tagSF         = "sf"
	tagBW         = "bw"
)

// Field keys.
const (
	fieldWaterTemp     = "water_temp"
	fieldEnclosureTemp = "enclosure_temp"
	fieldEnclosureHumi = "enclosure_humi"
	fieldVoltage       = "voltage"
	fieldAirtimeMS     = "airtime_ms"
	fieldSF            = "sf"
	fieldGatewayCount  = "receiving_gateway_count"
	fieldMaxRSSI       = "max_rssi"
	fieldMaxSNR        = "max_snr"
)

// Decimal places written for each quantity.
const (
	temperaturePlaces = 2
	voltagePlaces     = 3
)

// Point builds the time-series tags and fields for one decoded uplink.
//
// sf and bw tags are only present for LoRa uplinks. Enclosure values,
// max_rssi and max_snr are only present when known.
func Point(up ttn.Uplink, p sensor.Profile, m payload.Measurement) (map[string]string, map[string]any) {
	tags := map[string]string{
		tagSensorID:   strconv.FormatUint(uint64(p.ExternalID), 10),
		tagDevEUI:     up.DeviceIdentity,
		tagSensorType: p.Codec.Family(),
	}

	fields := map[string]any{
		fieldWaterTemp:    decimal(float64(m.TemperatureWater), temperaturePlaces),
		fieldVoltage:      decimal(m.BatteryVolts(), voltagePlaces),
		fieldAirtimeMS:    up.Link.AirtimeMS,
		fieldGatewayCount: len(up.Link.Gateways),
	}

	if m.TemperatureEnclosure != nil {
		fields[fieldEnclosureTemp] = decimal(float64(*m.TemperatureEnclosure), temperaturePlaces)
	}
	if m.HumidityEnclosure != nil {
		fields[fieldEnclosureHumi] = decimal(float64(*m.HumidityEnclosure), temperaturePlaces)
	}

	if sf := up.Link.SpreadingFactor; sf != nil {
		tags[tagSF] = strconv.FormatUint(uint64(*sf), 10)
		fields[fieldSF] = *sf
	}
	if bw := up.Link.BandwidthHz; bw != nil {
		tags[tagBW] = strconv.FormatUint(*bw, 10)
	}

	if rssi, ok := up.Link.MaxRSSI(); ok {
		fields[fieldMaxRSSI] = rssi
	}
	if snr, ok := up.Link.MaxSNR(); ok {
		fields[fieldMaxSNR] = snr
	}

	return tags, fields
}

func decimal(v float64, places int) influxdb.Decimal {
	return influxdb.Decimal{Value: v, Places: places}
}
