package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Uplink results.
const (
	resultDispatched      = "dispatched"
	resultUnknownDevice   = "unknown_device"
	resultDecodeError     = "decode_error"
	resultInvalidDocument = "invalid_document"
	resultJoinAccept      = "join_accept"
)

// Sink write results.
const (
	resultOK    = "ok"
	resultError = "error"
)

var (
	uc = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ttnrelay_uplink_count",
		Help: "The number of handled uplink messages (per result).",
	}, []string{"result"})

	swc = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ttnrelay_sink_write_count",
		Help: "The number of sink writes (per sink and result).",
	}, []string{"sink", "result"})
)

func uplinkCounter(result string) prometheus.Counter {
	return uc.With(prometheus.Labels{"result": result})
}

func sinkWriteCounter(sink string, err error) prometheus.Counter {
	result := resultOK
	if err != nil {
		result = resultError
	}
	return swc.With(prometheus.Labels{"sink": sink, "result": result})
}
