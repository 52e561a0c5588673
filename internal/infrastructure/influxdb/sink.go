package influxdb

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/config"
)

// Measurement names.
const (
	// DefaultMeasurement is used when no measurement name is configured.
	DefaultMeasurement = "temperature"

	// StartupMeasurement receives one marker point per relay start.
	StartupMeasurement = "startup"
)

// Sink names, as reported by Sink.Name.
const (
	NameV1 = "influxdb"
	NameV2 = "influxdb2"
)

// lineWriter sends one line protocol record to a server.
type lineWriter interface {
	writeLine(ctx context.Context, line string) error
	ping(ctx context.Context) error
	close()
}

// Sink writes measurements to InfluxDB 1.x or 2.x.
//
// Every Write is sent synchronously as its own request; nothing is
// buffered. Safe for concurrent use.
type Sink struct {
	name        string
	measurement string
	w           lineWriter
}

// New creates a Sink from the influxdb2 section if present, otherwise
// from the influxdb section. It returns ErrNotConfigured when neither is set.
func New(cfg *config.Config, httpClient *http.Client) (*Sink, error) {
	switch {
	case cfg.InfluxDB2 != nil:
		return &Sink{
			name:        NameV2,
			measurement: measurementOrDefault(cfg.InfluxDB2.Measurement),
			w:           newV2Writer(*cfg.InfluxDB2, httpClient),
		}, nil
	case cfg.InfluxDB != nil:
		return &Sink{
			name:        NameV1,
			measurement: measurementOrDefault(cfg.InfluxDB.Measurement),
			w:           newV1Writer(*cfg.InfluxDB, httpClient),
		}, nil
	default:
		return nil, ErrNotConfigured
	}
}

func measurementOrDefault(m string) string {
	if m == "" {
		return DefaultMeasurement
	}
	return m
}

// Name returns NameV1 or NameV2.
func (s *Sink) Name() string {
	return s.name
}

// Measurement returns the measurement name points are written to.
func (s *Sink) Measurement() string {
	return s.measurement
}

// Line formats tags and fields the way Write sends them.
func (s *Sink) Line(tags map[string]string, fields map[string]any) (string, error) {
	return FormatLine(s.measurement, tags, fields)
}

// Write sends one point.
func (s *Sink) Write(ctx context.Context, tags map[string]string, fields map[string]any) error {
	line, err := s.Line(tags, fields)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", s.name, ErrWriteFailed, err)
	}
	if err := s.w.writeLine(ctx, line); err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	return nil
}

// WriteStartup writes a marker point to the "startup" measurement with a
// service tag and the start time in Unix seconds as its value.
func (s *Sink) WriteStartup(ctx context.Context, service string, at time.Time) error {
	line, err := FormatLine(StartupMeasurement,
		map[string]string{"service": service},
		map[string]any{"value": at.Unix()})
	if err != nil {
		return fmt.Errorf("%s: %w: %w", s.name, ErrWriteFailed, err)
	}
	if err := s.w.writeLine(ctx, line); err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	return nil
}

// Ping checks that the server is reachable and healthy.
func (s *Sink) Ping(ctx context.Context) error {
	return s.w.ping(ctx)
}

// Close releases the underlying client. Safe to call on a nil Sink.
func (s *Sink) Close() {
	if s == nil {
		return
	}
	s.w.close()
}
