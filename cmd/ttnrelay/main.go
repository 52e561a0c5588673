// TTN Relay - LoRaWAN water temperature uplink relay
//
// ttnrelay subscribes to The Things Network v3 MQTT API, decodes uplinks
// from Dragino and Gfroerli water temperature sensors and forwards the
// measurements to the measurement API and to InfluxDB.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/ttn-relay/internal/api"
	"github.com/nerrad567/ttn-relay/internal/infrastructure/config"
	"github.com/nerrad567/ttn-relay/internal/infrastructure/httpclient"
	"github.com/nerrad567/ttn-relay/internal/infrastructure/influxdb"
	"github.com/nerrad567/ttn-relay/internal/infrastructure/logging"
	"github.com/nerrad567/ttn-relay/internal/infrastructure/measurementapi"
	"github.com/nerrad567/ttn-relay/internal/infrastructure/mqtt"
	"github.com/nerrad567/ttn-relay/internal/relay"
	"github.com/nerrad567/ttn-relay/internal/sensor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// defaultConfigPath is used when neither --config nor TTNRELAY_CONFIG is set.
	defaultConfigPath = "config.yaml"

	// startupPingTimeout bounds each InfluxDB call made at startup.
	startupPingTimeout = 5 * time.Second
)

func main() {
	// Cancel on Ctrl+C and SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the relay itself, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting TTN relay",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	registry, err := sensor.FromConfig(cfg.Sensors)
	if err != nil {
		return fmt.Errorf("building sensor registry: %w", err)
	}
	logSensors(log, registry)

	hc := httpclient.New(cfg.HTTP.Timeouts)
	apiClient := measurementapi.New(cfg.API, hc)

	// series stays a nil interface when InfluxDB is not configured.
	var series relay.TimeSeriesSink
	sink, err := influxdb.New(cfg, hc)
	switch {
	case errors.Is(err, influxdb.ErrNotConfigured):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("creating InfluxDB sink: %w", err)
	default:
		defer sink.Close()
		series = sink
		pingInflux(ctx, log, sink)
		markStartup(ctx, log, sink)
	}

	manager := mqtt.NewManager(
		mqtt.NewPahoDialer(cfg.MQTT, cfg.GetKeepAlive(), log.With("component", "mqtt")),
		mqtt.ManagerConfig{
			Topics:         mqtt.NewTopics(cfg.MQTT.Application),
			QoS:            byte(cfg.MQTT.QoS),
			ReconnectDelay: cfg.GetReconnectDelay(),
		},
		log.With("component", "mqtt"),
	)
	defer func() {
		log.Info("disconnecting from TTN broker")
		if closeErr := manager.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	dispatcher := relay.NewDispatcher(registry, apiClient, series, log.With("component", "dispatcher"))
	r := relay.New(manager, dispatcher, log)

	var ops *api.Server
	if cfg.Metrics.Enabled {
		ops, err = api.New(api.Deps{
			Config:     cfg.Metrics,
			Logger:     log.With("component", "api"),
			Registry:   registry,
			Connection: manager,
			Version:    version,
		})
		if err != nil {
			return fmt.Errorf("creating ops server: %w", err)
		}
		if err := ops.Listen(); err != nil {
			return fmt.Errorf("starting ops server: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("connecting to TTN broker",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		if err := manager.Start(gctx); err != nil {
			if gctx.Err() != nil {
				return nil
			}
			return err
		}
		return r.Run(gctx)
	})

	if ops != nil {
		g.Go(func() error {
			return serveOps(gctx, log, ops)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// opsServer is the part of *api.Server that serveOps needs.
type opsServer interface {
	Serve(ctx context.Context) error
}

// serveOps runs the ops server until ctx is cancelled. The ops endpoint
// is auxiliary: a failure is logged and ingestion keeps running.
func serveOps(ctx context.Context, log *logging.Logger, srv opsServer) error {
	if err := srv.Serve(ctx); err != nil {
		log.Error("ops server stopped", "error", err)
	}
	return nil
}

// logSensors lists the configured sensors at startup.
func logSensors(log *logging.Logger, registry *sensor.Registry) {
	log.Info("configured sensors", "count", registry.Len())
	registry.Each(func(devEUI string, p sensor.Profile) {
		log.Info("sensor",
			"dev_eui", devEUI,
			"sensor_id", p.ExternalID,
			"sensor_type", p.Codec.Family(),
			"send_to_api", p.SubmitToPrimarySink,
		)
	})
}

// pingInflux checks InfluxDB at startup. Failure is only logged.
func pingInflux(ctx context.Context, log *logging.Logger, sink *influxdb.Sink) {
	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()

	if err := sink.Ping(pingCtx); err != nil {
		log.Warn("InfluxDB not reachable at startup", "sink", sink.Name(), "error", err)
		return
	}
	log.Info("InfluxDB reachable", "sink", sink.Name(), "measurement", sink.Measurement())
}

// markStartup writes the startup marker point. Failure is only logged.
func markStartup(ctx context.Context, log *logging.Logger, sink *influxdb.Sink) {
	writeCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()

	if err := sink.WriteStartup(writeCtx, logging.ServiceName, time.Now()); err != nil {
		log.Warn("could not write startup marker", "sink", sink.Name(), "error", err)
	}
}
