// Package relay turns TTN uplinks into measurements and delivers them.
//
// Each uplink is looked up in the sensor registry, decoded with the
// device's codec and then sent to the measurement API and, when
// configured, to InfluxDB. The two sinks are independent: a failure of
// one is logged and counted but never stops the other, and no per
// message problem ever stops the consumer loop.
//
//	d := relay.NewDispatcher(registry, apiClient, influxSink, logger)
//	r := relay.New(manager, d, logger)
//	err := r.Run(ctx) // returns when ctx is cancelled
package relay
