// Package mqtt consumes the TTN v3 MQTT integration.
//
// This package manages:
//   - Connection to the TTN broker with username/API key auth over TLS
//   - Subscription to the uplink and activation topics
//   - Reconnection after connection loss, forever, with a fixed delay
//   - Delivery of uplink messages one at a time to a single consumer
//
// # Architecture
//
// The Manager owns the connection lifecycle as an explicit state machine:
//
//	Disconnected → Connecting → Subscribed ⇄ Reconnecting
//	                                 ↓
//	                            ShuttingDown
//
// The transport is reached through the Dialer and Session interfaces.
// NewPahoDialer provides the production implementation on top of
// eclipse/paho.mqtt.golang; tests substitute a fake. Paho's own
// auto-reconnect is disabled so there is exactly one retry loop.
//
// # Acknowledgement and backpressure
//
// Sessions are persistent (clean session off, fixed client ID) and paho's
// automatic acknowledgement is disabled. The paho handler only queues;
// the consumer calls Message.Ack after the uplink is dispatched. A slow
// consumer therefore fills the broker's in-flight window instead of
// stalling paho's network loop, and uplinks not yet acknowledged when a
// connection drops are redelivered on the next session.
//
// # Usage
//
//	mgr := mqtt.NewManager(mqtt.NewPahoDialer(cfg.MQTT, cfg.GetKeepAlive(), logger), mqtt.ManagerConfig{
//	    Topics:         mqtt.NewTopics(cfg.MQTT.Application),
//	    QoS:            byte(cfg.MQTT.QoS),
//	    ReconnectDelay: cfg.GetReconnectDelay(),
//	}, logger)
//	defer mgr.Close()
//
//	if err := mgr.Start(ctx); err != nil {
//	    return err // ctx cancelled
//	}
//	for {
//	    msg, err := mgr.Next(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    handle(msg)
//	    msg.Ack()
//	}
//
// # Security Considerations
//
//   - TLS 1.2 minimum when cfg.Broker.TLS is set (the TTN default)
//   - The password is a TTN API key; set it through TTNRELAY_MQTT_PASSWORD
package mqtt
