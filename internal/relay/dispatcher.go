package relay

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/logging"
	"github.com/nerrad567/ttn-relay/internal/payload"
	"github.com/nerrad567/ttn-relay/internal/sensor"
	"github.com/nerrad567/ttn-relay/internal/ttn"
)

// apiSinkName labels measurement API writes in metrics and logs.
const apiSinkName = "api"

// MeasurementSink receives the water temperature of a sensor.
type MeasurementSink interface {
	Submit(ctx context.Context, sensorID uint32, temperature float32) error
}

// TimeSeriesSink receives one tagged point per uplink.
type TimeSeriesSink interface {
	Name() string
	Write(ctx context.Context, tags map[string]string, fields map[string]any) error
}

// Dispatcher routes decoded uplinks to the sinks.
type Dispatcher struct {
	registry *sensor.Registry
	api      MeasurementSink
	series   TimeSeriesSink
	logger   *logging.Logger
}

// NewDispatcher creates a Dispatcher. api and series may be nil, in
// which case that sink is skipped.
func NewDispatcher(registry *sensor.Registry, api MeasurementSink, series TimeSeriesSink, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		api:      api,
		series:   series,
		logger:   logger,
	}
}

// Handle processes one uplink. It never fails: unknown devices, decode
// errors and sink errors are logged and counted.
//
// The measurement API and the time-series sink are both attempted
// regardless of each other's outcome.
func (d *Dispatcher) Handle(ctx context.Context, up ttn.Uplink) {
	log := d.logger.With("dev_eui", up.DeviceIdentity)
	d.logMetadata(log, up)

	profile, ok := d.registry.Lookup(up.DeviceIdentity)
	if !ok {
		uplinkCounter(resultUnknownDevice).Inc()
		log.Warn("sensor not found in config, ignoring uplink", "device_id", up.DeviceID)
		return
	}

	log = log.With("sensor_id", profile.ExternalID)

	m, err := payload.Decode(profile.Codec, up.FrameChannel, up.Payload)
	if err != nil {
		uplinkCounter(resultDecodeError).Inc()
		log.Error("failed to decode payload",
			"error", err,
			"codec", profile.Codec.String(),
			"f_port", up.FrameChannel,
			"unsupported", errors.Is(err, payload.ErrUnsupportedCodec),
		)
		return
	}

	uplinkCounter(resultDispatched).Inc()
	log.Info("measurement decoded",
		"water_temp", m.TemperatureWater,
		"battery_mv", m.BatteryMillivolts,
	)

	if d.api != nil && profile.SubmitToPrimarySink {
		err := d.api.Submit(ctx, profile.ExternalID, m.TemperatureWater)
		sinkWriteCounter(apiSinkName, err).Inc()
		if err != nil {
			log.Warn("could not submit measurement to API", "error", err)
		} else {
			log.Debug("API request succeeded")
		}
	}

	if d.series != nil {
		tags, fields := Point(up, profile, m)
		err := d.series.Write(ctx, tags, fields)
		sinkWriteCounter(d.series.Name(), err).Inc()
		if err != nil {
			log.Warn("could not write measurement to time-series sink",
				"sink", d.series.Name(),
				"error", err,
			)
		} else {
			log.Debug("time-series write succeeded", "sink", d.series.Name())
		}
	}
}

// logMetadata logs the received uplink at debug level.
func (d *Dispatcher) logMetadata(log *logging.Logger, up ttn.Uplink) {
	attrs := []any{
		"device_id", up.DeviceID,
		"application_id", up.ApplicationID,
		"f_port", up.FrameChannel,
		"f_cnt", up.FrameCounter,
		"airtime_ms", up.Link.AirtimeMS,
		"payload", hex.EncodeToString(up.Payload),
		"gateways", len(up.Link.Gateways),
	}
	if up.DevAddr != nil {
		attrs = append(attrs, "dev_addr", up.DevAddr.String())
	}
	if sf := up.Link.SpreadingFactor; sf != nil {
		attrs = append(attrs, "sf", *sf)
	}
	if bw := up.Link.BandwidthHz; bw != nil {
		attrs = append(attrs, "bw", *bw)
	}
	if f := up.Link.FrequencyHz; f != nil {
		attrs = append(attrs, "frequency", *f)
	}
	log.Debug("uplink received", attrs...)

	for _, gw := range up.Link.Gateways {
		gwAttrs := []any{"gateway_id", gw.ID}
		if gw.EUI != nil {
			gwAttrs = append(gwAttrs, "gateway_eui", gw.EUI.String())
		}
		if gw.RSSI != nil {
			gwAttrs = append(gwAttrs, "rssi", *gw.RSSI)
		}
		if gw.SNR != nil {
			gwAttrs = append(gwAttrs, "snr", *gw.SNR)
		}
		log.Debug("uplink gateway", gwAttrs...)
	}
}
