// Package logging provides structured logging for the TTN relay.
//
// It wraps log/slog so every component logs with the same handler,
// level filter and default fields (service, version).
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("subscribed", "topic", topic)
//	logger.Warn("unknown device", "dev_eui", devEUI)
//
// Never log MQTT passwords or API tokens.
package logging
