package mqtt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ttnrelay_mqtt_connect_count",
		Help: "The number of times the relay connected and subscribed to the TTN broker.",
	})

	connectErrorCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ttnrelay_mqtt_connect_error_count",
		Help: "The number of failed connection attempts to the TTN broker.",
	})

	connectionLostCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ttnrelay_mqtt_connection_lost_count",
		Help: "The number of times an established TTN broker connection dropped.",
	})

	mc = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ttnrelay_mqtt_message_count",
		Help: "The number of received MQTT messages (per topic kind).",
	}, []string{"kind"})

	subscribedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ttnrelay_mqtt_subscribed",
		Help: "1 while the relay holds a subscribed TTN session, 0 otherwise.",
	})
)

func messageCounter(kind TopicKind) prometheus.Counter {
	return mc.With(prometheus.Labels{"kind": kind.String()})
}
