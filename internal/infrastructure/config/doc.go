// Package config handles loading and validating the TTN relay configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding secrets with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The loaded *Config is constructed once at startup and handed to the
// components that need it; there is no package-level configuration state.
//
// Security Considerations:
//   - MQTT passwords and API tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Broker.Host)
//
// Example file:
//
//	mqtt:
//	  broker: {host: eu1.cloud.thethings.network, port: 8883, tls: true}
//	  auth: {username: "gfroerli@ttn"}
//	api:
//	  base_url: https://watertemp-api.example.com/api
//	influxdb2:
//	  base_url: https://influx.example.com
//	  org: coredump
//	  bucket: gfroerli
//	sensors:
//	  "0004A30B001F1A2B": {sensor_type: dragino, sensor_id: 7}
package config
