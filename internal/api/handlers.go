package api

import (
	"net/http"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/mqtt"
	"github.com/nerrad567/ttn-relay/internal/sensor"
)

// Health statuses.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	MQTTState string `json:"mqtt_state"`
	Sensors   int    `json:"sensors"`
	Version   string `json:"version"`
}

// SensorResponse describes one configured sensor.
type SensorResponse struct {
	DevEUI     string `json:"dev_eui"`
	SensorID   uint32 `json:"sensor_id"`
	SensorType string `json:"sensor_type"`
	Codec      string `json:"codec"`
	SendToAPI  bool   `json:"send_to_api"`
}

// SensorListResponse is the body of GET /api/v1/sensors.
type SensorListResponse struct {
	Sensors []SensorResponse `json:"sensors"`
	Count   int              `json:"count"`
}

// handleHealth reports 200 while a TTN session is subscribed and 503
// while connecting or reconnecting.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := s.connection.State()

	resp := HealthResponse{
		Status:    statusOK,
		MQTTState: state.String(),
		Sensors:   s.registry.Len(),
		Version:   s.version,
	}
	status := http.StatusOK
	if state != mqtt.StateSubscribed {
		resp.Status = statusDegraded
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

func (s *Server) handleListSensors(w http.ResponseWriter, _ *http.Request) {
	sensors := make([]SensorResponse, 0, s.registry.Len())
	s.registry.Each(func(devEUI string, p sensor.Profile) {
		sensors = append(sensors, SensorResponse{
			DevEUI:     devEUI,
			SensorID:   p.ExternalID,
			SensorType: p.Codec.Family(),
			Codec:      p.Codec.String(),
			SendToAPI:  p.SubmitToPrimarySink,
		})
	})

	writeJSON(w, http.StatusOK, SensorListResponse{
		Sensors: sensors,
		Count:   len(sensors),
	})
}
